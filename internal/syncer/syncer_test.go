package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/report"
)

func helptextRows(parts ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Text"})
	for _, p := range parts {
		rows.AddRow(p)
	}
	return rows
}

func syncConfig() config.SyncConfig {
	cfg := config.DefaultConfig().Sync
	cfg.AllowCreateNew = false
	return cfg
}

func newTestSyncer(t *testing.T, cfg config.SyncConfig) *Syncer {
	t.Helper()
	s, err := NewSyncer(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSyncObject_IsolatesTargetFailures(t *testing.T) {
	base, baseMock := newMockConn(t, "base01", "sales")
	baseMock.ExpectQuery(`sp_helptext`).WithArgs("usp_load").
		WillReturnRows(helptextRows("CREATE PROCEDURE usp_load\n", "AS\n", "SELECT 1"))

	bad, badMock := newMockConn(t, "srv01", "sales")
	expectLock(badMock)
	badMock.ExpectBegin()
	expectExists(badMock, 0)
	badMock.ExpectRollback()
	badMock.ExpectExec(`sp_releaseapplock`).WillReturnResult(sqlmock.NewResult(0, 0))

	good, goodMock := newMockConn(t, "srv02", "sales")
	expectLock(goodMock)
	goodMock.ExpectBegin()
	expectExists(goodMock, 1)
	goodMock.ExpectExec(`DROP PROCEDURE`).WillReturnResult(sqlmock.NewResult(0, 0))
	goodMock.ExpectExec(`CREATE PROCEDURE usp_load`).WillReturnResult(sqlmock.NewResult(0, 0))
	goodMock.ExpectCommit()
	goodMock.ExpectExec(`sp_releaseapplock`).WillReturnResult(sqlmock.NewResult(0, 0))

	s := newTestSyncer(t, syncConfig())
	rep := s.SyncObject(context.Background(), base, []*database.Conn{bad, good}, procID)

	v, ok := rep.Get("srv01", "sales", "[usp_load]")
	require.True(t, ok)
	assert.Equal(t, report.Lines{MsgFailed + "Stored Procedure 'usp_load' does not exist and creation not permitted"}, v)

	v, ok = rep.Get("srv02", "sales", "[usp_load]")
	require.True(t, ok)
	assert.Equal(t, report.Lines{MsgSuccess}, v)

	// Successes and failures share one shape: a list of lines per object.
	var buf bytes.Buffer
	require.NoError(t, report.JSONWriter{}.Write(&buf, rep))
	var decoded map[string]map[string]map[string][]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{MsgSuccess}, decoded["srv02"]["sales"]["[usp_load]"])
	assert.Len(t, decoded["srv01"]["sales"]["[usp_load]"], 1)

	assert.NoError(t, baseMock.ExpectationsWereMet())
	assert.NoError(t, badMock.ExpectationsWereMet())
	assert.NoError(t, goodMock.ExpectationsWereMet())
}

func TestSyncObject_EmptyBaseDefinition(t *testing.T) {
	base, baseMock := newMockConn(t, "base01", "sales")
	baseMock.ExpectQuery(`sp_helptext`).WillReturnRows(helptextRows())
	t1, _ := newMockConn(t, "srv01", "sales")
	t2, _ := newMockConn(t, "srv02", "sales")

	s := newTestSyncer(t, syncConfig())
	rep := s.SyncObject(context.Background(), base, []*database.Conn{t1, t2}, procID)

	want := report.Lines{MsgBaseFetchFailed + MsgEmptyDefinition}
	for _, server := range []string{"srv01", "srv02"} {
		v, ok := rep.Get(server, "sales", "[usp_load]")
		require.True(t, ok, server)
		assert.Equal(t, want, v)
	}
}

func TestSyncObject_CachesBaseDefinition(t *testing.T) {
	base, baseMock := newMockConn(t, "base01", "sales")
	baseMock.ExpectQuery(`sp_helptext`).WillReturnRows(helptextRows(procText))

	s := newTestSyncer(t, syncConfig())
	for i := 0; i < 2; i++ {
		text, err := s.baseDefinition(context.Background(), base, procID)
		require.NoError(t, err)
		assert.Equal(t, procText, text)
	}
	// a single helptext expectation proves the second read came from the cache
	assert.NoError(t, baseMock.ExpectationsWereMet())
}

func TestSyncObject_VerificationFailure(t *testing.T) {
	base, baseMock := newMockConn(t, "base01", "sales")
	baseMock.ExpectQuery(`sp_helptext`).WillReturnRows(helptextRows(procText))

	target, mock := newMockConn(t, "srv01", "sales")
	expectLock(mock)
	mock.ExpectBegin()
	expectExists(mock, 1)
	mock.ExpectExec(`DROP PROCEDURE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE PROCEDURE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`sp_releaseapplock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`sp_helptext`).WillReturnRows(helptextRows("CREATE PROCEDURE usp_load AS SELECT 2"))

	cfg := syncConfig()
	cfg.Verify = true
	s := newTestSyncer(t, cfg)
	rep := s.SyncObject(context.Background(), base, []*database.Conn{target}, procID)

	v, ok := rep.Get("srv01", "sales", "[usp_load]")
	require.True(t, ok)
	lines, isLines := v.(report.Lines)
	require.True(t, isLines)
	assert.Contains(t, lines[0], MsgVerificationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSyncer_CacheDisabled(t *testing.T) {
	cfg := syncConfig()
	cfg.CacheMaxCost = 0
	s := newTestSyncer(t, cfg)
	assert.Nil(t, s.cache)
	assert.Nil(t, s.verifier)
}
