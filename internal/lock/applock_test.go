package lock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dbsmedya/schemasync/internal/dialect"
	"github.com/dbsmedya/schemasync/internal/types"
)

func TestObjectLockName(t *testing.T) {
	tests := []struct {
		id   types.ObjectIdentity
		want string
	}{
		{types.ObjectIdentity{Type: types.StoredProcedure, Name: "dbo.usp_Load"}, "schemasync:stored_procedure:dbo.usp_load"},
		{types.ObjectIdentity{Type: types.View, Name: "vw Sales"}, "schemasync:view:vw_sales"},
	}
	for _, tt := range tests {
		if got := ObjectLockName(tt.id); got != tt.want {
			t.Errorf("ObjectLockName(%v) = %q, want %q", tt.id, got, tt.want)
		}
	}

	long := ObjectLockName(types.ObjectIdentity{Type: types.View, Name: strings.Repeat("x", 100)})
	if len(long) != maxNameLength {
		t.Errorf("Expected truncated name of %d chars, got %d", maxNameLength, len(long))
	}
}

func TestAppLock_AcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`GET_LOCK`).WithArgs("schemasync:view:vw_a", 2).
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectExec(`RELEASE_LOCK`).WithArgs("schemasync:view:vw_a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	l := NewObjectLock(db, dialect.MySQL{}, types.ObjectIdentity{Type: types.View, Name: "vw_a"})
	ok, err := l.Acquire(context.Background(), 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("Acquire() = %v, %v", ok, err)
	}
	if !l.IsHeld() {
		t.Error("Expected lock to be held")
	}
	// second acquire is a no-op
	if ok, _ := l.Acquire(context.Background(), time.Second); !ok {
		t.Error("Expected re-acquire to report held")
	}
	if err := l.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if l.IsHeld() {
		t.Error("Expected lock to be released")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAppLock_Timeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`sp_getapplock`).WithArgs("busy", 1500).
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

	l := NewAppLock(db, dialect.SQLServer{}, "busy")
	err = l.AcquireOrFail(context.Background(), 1500*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Expected ErrLockTimeout, got %v", err)
	}
	if l.IsHeld() {
		t.Error("Lock must not be held after timeout")
	}
}

func TestAppLock_NullResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`GET_LOCK`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(nil))

	_, err = NewAppLock(db, dialect.MySQL{}, "x").Acquire(context.Background(), time.Second)
	if err == nil || !strings.Contains(err.Error(), "NULL") {
		t.Errorf("Expected NULL error, got %v", err)
	}
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`sp_getapplock`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectExec(`sp_releaseapplock`).WillReturnResult(sqlmock.NewResult(0, 0))

	boom := errors.New("boom")
	l := NewAppLock(db, dialect.SQLServer{}, "obj")
	if err := l.WithLock(context.Background(), time.Second, func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Expected fn error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWithLock_ReleaseErrorAfterSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`sp_getapplock`).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectExec(`sp_releaseapplock`).WillReturnError(errors.New("gone"))

	l := NewAppLock(db, dialect.SQLServer{}, "obj")
	err = l.WithLock(context.Background(), time.Second, func() error { return nil })
	if !errors.Is(err, ErrReleaseFailed) {
		t.Errorf("Expected ErrReleaseFailed, got %v", err)
	}
	if l.IsHeld() {
		t.Error("Expected lock to be marked released")
	}
}
