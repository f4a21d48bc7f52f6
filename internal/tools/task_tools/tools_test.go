package task_tools

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/store"
)

func TestRegisterTaskTools(t *testing.T) {
	db, err := store.NewDBConnection(config.DatabaseConfig{Type: config.SqliteDBType})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	s := store.New(db, nil)
	t.Cleanup(func() { _ = s.Close() })

	srv := mcpserver.NewMCPServer("clavr-test", "dev")
	assert.NoError(t, RegisterTaskTools(srv, s, nil, "user-1"))
}

func TestRegisterTaskToolsRequiresUser(t *testing.T) {
	srv := mcpserver.NewMCPServer("clavr-test", "dev")
	assert.Error(t, RegisterTaskTools(srv, nil, nil, ""))
}
