package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  name: onlineshop
  host: 0.0.0.0
  port: 8080
etcd:
  endpoints:
    - localhost:2379
  dial_timeout: 5s
  prefix: /services
mysql:
  host: db
  port: 3306
  username: shop
  password: secret
  database: onlineshop
redis:
  addr: localhost:6379
kafka:
  brokers:
    - localhost:9092
session:
  ttl: 45m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "onlineshop", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"localhost:2379"}, cfg.Etcd.Endpoints)
	assert.Equal(t, 5*time.Second, cfg.Etcd.DialTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  name: onlineshop
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ProductTTL)
	assert.Equal(t, int64(30), cfg.Etcd.LeaseTTL)
	assert.Equal(t, "onlineshop-group", cfg.Kafka.GroupID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{
		Host:     "db",
		Port:     3306,
		Username: "shop",
		Password: "secret",
		Database: "onlineshop",
	}
	assert.Equal(t,
		"shop:secret@tcp(db:3306)/onlineshop?charset=utf8mb4&parseTime=True&loc=Local",
		c.DSN())
}
