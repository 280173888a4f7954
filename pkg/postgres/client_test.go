package postgres

import (
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_EscapesCredentials(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:     "db.internal",
		Database: "bitlearn",
		User:     "learner",
		Password: "p@ss/w:rd?",
		SSLMode:  "require",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/bitlearn", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss/w:rd?", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "learner", cfg.ConnConfig.User)
	assert.Equal(t, "p@ss/w:rd?", cfg.ConnConfig.Password)
}

func TestBuildDSN_PrefersExplicitDSN(t *testing.T) {
	assert.Equal(t, "postgres://x@y/z", BuildDSN(ClientConfig{DSN: " postgres://x@y/z ", Host: "ignored"}))
}
