package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xelth-com/lotscan/internal/config"
)

func TestIsEmbedded(t *testing.T) {
	assert.True(t, IsEmbedded(config.DatabaseConfig{Host: "localhost"}))
	assert.False(t, IsEmbedded(config.DatabaseConfig{Host: "localhost", Password: "secret"}))
	assert.False(t, IsEmbedded(config.DatabaseConfig{Host: "db.internal"}))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "5432",
		Username: "lotscan",
		Password: "pw",
		Database: "ledger",
	})
	assert.Equal(t, "host=db.internal port=5432 user=lotscan password=pw dbname=ledger sslmode=disable", dsn)
}
