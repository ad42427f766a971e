package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig_MergesEnvOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
server:
  port: ":8080"
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	cfg, err := LoadConfig("production", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, 5432, db["port"])
	assert.Equal(t, ":8080", cfg["server"].(map[string]interface{})["port"])
}

func TestLoadConfig_MissingEnvFileUsesBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: base-secret\n")

	cfg, err := LoadConfig("staging", dir)
	require.NoError(t, err)
	assert.Equal(t, "base-secret", cfg["jwt"].(map[string]interface{})["secret"])
}

func TestLoadConfig_SubstitutesSecretsAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  password: ${TT_TEST_DB_PASSWORD}
jwt:
  secret: ${TT_TEST_JWT_SECRET}
mq:
  url: ${TT_TEST_UNSET}
`)
	writeFile(t, dir, "secrets.env", "TT_TEST_DB_PASSWORD=\"from-secrets\"\nTT_TEST_JWT_SECRET=secret-file\n")
	t.Setenv("TT_TEST_JWT_SECRET", "from-env")

	cfg, err := LoadConfig("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "from-secrets", cfg["db"].(map[string]interface{})["password"])
	assert.Equal(t, "from-env", cfg["jwt"].(map[string]interface{})["secret"])
	assert.Equal(t, "${TT_TEST_UNSET}", cfg["mq"].(map[string]interface{})["url"])
}

func TestLoadConfig_MissingBaseFails(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestDecode_IntoStruct(t *testing.T) {
	var out struct {
		DB DBConfig `yaml:"db"`
	}
	err := Decode(map[string]interface{}{
		"db": map[string]interface{}{"host": "h", "port": 6543},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "h", out.DB.Host)
	assert.Equal(t, 6543, out.DB.Port)
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := DBConfig{Host: "h", Port: 5432}
	OverrideDBFromEnv(&cfg)

	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
}

func TestOverrideJWTAndRedisFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_TTL_HOURS", "6")
	t.Setenv("REDIS_DB", "2")

	jwt := JWTConfig{Secret: "file", TTLHours: 24}
	OverrideJWTFromEnv(&jwt)
	redis := RedisConfig{Addr: "localhost:6379"}
	OverrideRedisFromEnv(&redis)

	assert.Equal(t, JWTConfig{Secret: "s", TTLHours: 6}, jwt)
	assert.Equal(t, "localhost:6379", redis.Addr)
	assert.Equal(t, 2, redis.DB)
}
