package assistant_tools

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/assistant"
	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/store"
)

func TestRegisterAssistantTools(t *testing.T) {
	db, err := store.NewDBConnection(config.DatabaseConfig{Type: config.SqliteDBType})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	s := store.New(db, nil)
	t.Cleanup(func() { _ = s.Close() })

	router := parser.NewRouter(config.ClassifierConfig{PatternThreshold: 0.85}, nil, nil, nil)
	a := assistant.New(router, s, assistant.Options{})
	exports := export.NewManager(s, t.TempDir(), nil, nil, nil)

	srv := mcpserver.NewMCPServer("clavr-test", "dev")
	assert.NoError(t, RegisterAssistantTools(srv, a, exports, "user-1"))
}

func TestRegisterAssistantToolsRequiresUser(t *testing.T) {
	srv := mcpserver.NewMCPServer("clavr-test", "dev")
	assert.Error(t, RegisterAssistantTools(srv, nil, nil, ""))
}
