package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/dialect"
)

// ============================================================================
// Test Helpers
// ============================================================================

// fakeConnector hands out sqlmock connections keyed by server name.
type fakeConnector struct {
	mu    sync.Mutex
	conns map[string]*database.Conn
	errs  map[string]error
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		conns: make(map[string]*database.Conn),
		errs:  make(map[string]error),
	}
}

func (f *fakeConnector) add(t *testing.T, server string) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f.conns[server] = &database.Conn{DB: db, Dialect: dialect.SQLServer{}, Server: server, Database: "Sales"}
	return mock
}

func (f *fakeConnector) fail(server string, err error) {
	f.errs[server] = err
}

func (f *fakeConnector) Open(ctx context.Context, cfg config.ConnectionConfig) (*database.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[cfg.Server]; ok {
		return nil, err
	}
	conn, ok := f.conns[cfg.Server]
	if !ok {
		return nil, fmt.Errorf("no fake connection for %s", cfg.Server)
	}
	return conn, nil
}

// useConnector routes every command through fc for the duration of the test.
func useConnector(t *testing.T, fc *fakeConnector) {
	t.Helper()
	original := connectorFactory
	connectorFactory = func(*config.Config) (database.Connector, func() error) {
		return fc, func() error { return nil }
	}
	t.Cleanup(func() { connectorFactory = original })
}

// testConfig returns a valid config with one base and the given targets.
func testConfig(targets ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Base = config.ConnectionConfig{Server: "base01", Database: "Sales", Username: "sa", Password: "secret"}
	for _, t := range targets {
		cfg.Targets = append(cfg.Targets, config.ConnectionConfig{
			Server: t, Database: "Sales", Username: "sa", Password: "secret",
		})
	}
	cfg.Logging.Level = "error"
	return cfg
}

// writeConfig marshals cfg to a YAML file and points --config at it.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "schemasync.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	original := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = original })
	return path
}
