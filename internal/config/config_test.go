package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  grpc_addr: ":6000"
storage:
  driver: mysql
  auto_migrate: true
mysql:
  host: db
  user: ledger
  dbname: ledger
lock:
  driver: redis
  max_wait: 500ms
redis:
  addr: redis:6379
ledger:
  currency: JPY
wallets:
  - id: w-1
    members: [alice, bob]
    cards: [card-1]
baas:
  provider: mock
  webhook_secret: from-file
log:
  level: debug
`

func TestParse(t *testing.T) {
	t.Setenv("BAAS_WEBHOOK_SECRET", "from-env")
	t.Setenv("MYSQL_PASSWORD", "pw")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.GRPCAddr)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
	assert.Equal(t, StorageMySQL, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, "pw", cfg.MySQL.Password)
	assert.Equal(t, 100, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, LockRedis, cfg.Lock.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.MaxWait)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "JPY", cfg.Ledger.Currency)
	assert.Equal(t, int32(0), cfg.Ledger.MinorUnitExponent)
	assert.Equal(t, "from-env", cfg.BaaS.WebhookSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Wallets, 1)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Wallets[0].Members)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "data/wal", cfg.Storage.WAL.Dir)
	assert.Equal(t, LockLocal, cfg.Lock.Driver)
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Equal(t, int32(2), cfg.Ledger.MinorUnitExponent)
	assert.Equal(t, "mock", cfg.BaaS.Provider)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown storage":    "storage: {driver: sqlite}",
		"unknown lock":       "lock: {driver: etcd}",
		"mysql lock":         "lock: {driver: mysql}",
		"exponent too large": "ledger: {currency: XXX, minor_unit_exponent: 12}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.MySQL.Host)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	t.Setenv(EnvPath, "/etc/ledger.yaml")
	assert.Equal(t, "/etc/ledger.yaml", ResolvePath(""))
	assert.Equal(t, "cli.yaml", ResolvePath("cli.yaml"))
}
