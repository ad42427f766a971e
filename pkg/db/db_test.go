package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/pkg/config"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	dsn := DSN(config.DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "tracker",
		Password: "p@ss/w:rd?",
		Name:     "tasktracker",
	})

	poolCfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolCfg.ConnConfig.Port)
	assert.Equal(t, "tracker", poolCfg.ConnConfig.User)
	assert.Equal(t, "p@ss/w:rd?", poolCfg.ConnConfig.Password)
	assert.Equal(t, "tasktracker", poolCfg.ConnConfig.Database)
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestDSN_KeepsConfiguredSSLMode(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "h", Port: 5432, User: "u", Name: "n", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
