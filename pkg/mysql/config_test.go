package mysql

import (
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db.internal", Port: 3307, User: "ledger", Password: "p@ss:word", DBName: "pool"}

	parsed, err := driver.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "ledger", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "pool", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestConfigDSNDefaultPort(t *testing.T) {
	cfg := Config{Host: "localhost", User: "root", DBName: "pool"}
	parsed, err := driver.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", parsed.Addr)
}
