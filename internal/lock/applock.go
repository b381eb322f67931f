// Package lock serializes concurrent writers of the same object with
// engine-level session locks (sp_getapplock on SQL Server, GET_LOCK on MySQL).
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/schemasync/internal/dialect"
	"github.com/dbsmedya/schemasync/internal/types"
)

// ErrLockTimeout is returned when another session kept the lock for the
// whole acquisition timeout.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// ErrReleaseFailed wraps errors from releasing a held lock.
var ErrReleaseFailed = errors.New("lock release failed")

// maxNameLength is the shortest limit across supported engines (MySQL: 64).
const maxNameLength = 64

// Session is the single database session a lock lives on. Session locks are
// owned by the connection, so callers pass a dedicated *sql.Conn.
type Session interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// AppLock is a named session lock.
type AppLock struct {
	session  Session
	dialect  dialect.Dialect
	lockName string
	held     bool
}

// NewAppLock creates a lock named lockName. The lock is not acquired until
// Acquire is called.
func NewAppLock(session Session, d dialect.Dialect, lockName string) *AppLock {
	return &AppLock{session: session, dialect: d, lockName: lockName}
}

// NewObjectLock creates the lock guarding writes of one object.
func NewObjectLock(session Session, d dialect.Dialect, id types.ObjectIdentity) *AppLock {
	return NewAppLock(session, d, ObjectLockName(id))
}

// ObjectLockName returns the lock name for an object. Names are folded to
// lower case so that differently cased spellings share one lock.
//
// Example: ObjectLockName({StoredProcedure, "dbo.usp_Load"}) -> "schemasync:stored_procedure:dbo.usp_load"
func ObjectLockName(id types.ObjectIdentity) string {
	raw := fmt.Sprintf("schemasync:%s:%s", id.Type, id.Name)
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' || r == ':' {
			return r
		}
		return '_'
	}, strings.ToLower(raw))
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}

// Acquire waits up to timeout for the lock. It returns false when the timeout
// elapsed without obtaining it.
func (a *AppLock) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	if a.held {
		return true, nil
	}
	st := a.dialect.AcquireLock(a.lockName, timeout)
	var result sql.NullInt64
	if err := a.session.QueryRowContext(ctx, st.Query, st.Args...).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", a.lockName, err)
	}
	if !result.Valid {
		return false, fmt.Errorf("lock %q returned NULL (possible database error)", a.lockName)
	}
	if result.Int64 >= 1 {
		a.held = true
		return true, nil
	}
	return false, nil
}

// AcquireOrFail acquires the lock or returns ErrLockTimeout.
func (a *AppLock) AcquireOrFail(ctx context.Context, timeout time.Duration) error {
	acquired, err := a.Acquire(ctx, timeout)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another session", ErrLockTimeout, a.lockName)
	}
	return nil
}

// Release releases the lock if held. Locks also vanish when the session closes.
func (a *AppLock) Release(ctx context.Context) error {
	if !a.held {
		return nil
	}
	st := a.dialect.ReleaseLock(a.lockName)
	a.held = false
	if _, err := a.session.ExecContext(ctx, st.Query, st.Args...); err != nil {
		return fmt.Errorf("%w: lock %q: %w", ErrReleaseFailed, a.lockName, err)
	}
	return nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AppLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the lock.
func (a *AppLock) LockName() string {
	return a.lockName
}

// WithLock runs fn while holding the lock. The lock is released even when fn
// panics; release uses its own context so a cancelled ctx does not leak it.
func (a *AppLock) WithLock(ctx context.Context, timeout time.Duration, fn func() error) (err error) {
	if err := a.AcquireOrFail(ctx, timeout); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if releaseErr := a.Release(releaseCtx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn()
}
