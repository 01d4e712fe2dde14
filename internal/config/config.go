// Package config 服務設定載入
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/baas"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/directory"
	"github.com/JoeShih716/go-pool-ledger/internal/observability"
	"github.com/JoeShih716/go-pool-ledger/pkg/mysql"
	"github.com/JoeShih716/go-pool-ledger/pkg/wal"
)

// DefaultPath 未指定設定檔時的路徑
const DefaultPath = "config/config.yaml"

// EnvPath 指定設定檔路徑的環境變數
const EnvPath = "LEDGER_CONFIG"

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"

	LockLocal = "local"
	LockRedis = "redis"
	LockMySQL = "mysql"
)

type Config struct {
	Server  ServerConfig            `yaml:"server"`
	Storage StorageConfig           `yaml:"storage"`
	MySQL   mysql.Config            `yaml:"mysql"`
	Lock    LockConfig              `yaml:"lock"`
	Redis   RedisConfig             `yaml:"redis"`
	Ledger  LedgerConfig            `yaml:"ledger"`
	Wallets []directory.Wallet      `yaml:"wallets"`
	BaaS    baas.Config             `yaml:"baas"`
	Log     observability.LogConfig `yaml:"log"`
}

type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig 帳本儲存層，memory 模式以 WAL 保存
type StorageConfig struct {
	Driver      string     `yaml:"driver"`
	WAL         wal.Config `yaml:"wal"`
	AutoMigrate bool       `yaml:"auto_migrate"`
}

// LockConfig 卡片鎖，local 只適用單一行程
type LockConfig struct {
	Driver        string        `yaml:"driver"`
	MaxWait       time.Duration `yaml:"max_wait"`
	TTL           time.Duration `yaml:"ttl"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` // 可由 REDIS_PASSWORD 覆寫
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LedgerConfig 幣別與負權益政策
type LedgerConfig struct {
	Currency            string `yaml:"currency"`
	MinorUnitExponent   int32  `yaml:"minor_unit_exponent"`
	AllowNegativeEquity bool   `yaml:"allow_negative_equity"`
}

// ResolvePath 決定設定檔路徑，順序為 flag、LEDGER_CONFIG、預設值
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load 讀取設定檔，補上預設值並套用環境變數
//
// 參數:
//
//	path: YAML 設定檔路徑
//
// 回傳值:
//
//	*Config: 設定
//	error: 讀檔、解析或驗證失敗
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.MySQL.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("BAAS_WEBHOOK_SECRET"); v != "" {
		c.BaaS.WebhookSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.WAL.Dir == "" {
		c.Storage.WAL.Dir = "data/wal"
	}

	// 連線池預設值
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Lock.Driver == "" {
		c.Lock.Driver = LockLocal
	}
	if c.Lock.MaxWait == 0 {
		c.Lock.MaxWait = 2 * time.Second
	}
	if c.Lock.TTL == 0 {
		c.Lock.TTL = 10 * time.Second
	}
	if c.Lock.RetryInterval == 0 {
		c.Lock.RetryInterval = 10 * time.Millisecond
	}
	if c.Lock.KeyPrefix == "" {
		c.Lock.KeyPrefix = "poolledger:lock:"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Ledger.Currency == "" {
		c.Ledger.Currency = "USD"
		if c.Ledger.MinorUnitExponent == 0 {
			c.Ledger.MinorUnitExponent = 2
		}
	}

	if c.BaaS.Provider == "" {
		c.BaaS.Provider = baas.ProviderMock
	}
}

// Validate 檢查 driver 組合
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageMySQL:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Lock.Driver {
	case LockLocal, LockRedis:
	case LockMySQL:
		if c.Storage.Driver != StorageMySQL {
			return errors.New("lock driver mysql requires storage driver mysql")
		}
	default:
		return errors.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.Ledger.MinorUnitExponent < 0 || c.Ledger.MinorUnitExponent > 8 {
		return errors.Errorf("minor_unit_exponent %d out of range", c.Ledger.MinorUnitExponent)
	}
	if c.Lock.MaxWait < 0 || c.Lock.TTL < 0 {
		return errors.New("lock durations must not be negative")
	}
	return nil
}
