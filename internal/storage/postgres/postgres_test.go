package postgres

import (
	"testing"

	"github.com/hellogeo/geoanchor/internal/database"
	"github.com/hellogeo/geoanchor/internal/storage"
	"github.com/stretchr/testify/assert"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_UnreachableServer(t *testing.T) {
	_, err := New(Config{
		Connection: database.PostgresConfig{
			Host:     "127.0.0.1",
			Port:     "1",
			Username: "postgres",
			Password: "postgres",
			Database: "geoanchor",
		},
	}, nil)

	assert.ErrorContains(t, err, "failed to connect to postgres")
}
