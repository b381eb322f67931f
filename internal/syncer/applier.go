// Package syncer propagates base procedure and view definitions to targets.
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/schemasync/internal/catalog"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/lock"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Policy controls what Apply may do to a target.
type Policy struct {
	AllowCreate bool
}

// Outcome is the terminal state of a successful apply.
type Outcome int

const (
	// OutcomeReplaced means the object existed and was dropped and recreated.
	OutcomeReplaced Outcome = iota
	// OutcomeCreated means the object was absent and has been created.
	OutcomeCreated
)

func (o Outcome) String() string {
	if o == OutcomeCreated {
		return "created"
	}
	return "replaced"
}

// Applier writes one definition to one target.
type Applier struct {
	lockTimeout time.Duration
	logger      *logger.Logger
}

// NewApplier creates an Applier. lockTimeout bounds the wait for the
// per-object session lock.
func NewApplier(lockTimeout time.Duration, log *logger.Logger) *Applier {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Applier{lockTimeout: lockTimeout, logger: log}
}

// Apply replaces or creates id on conn from text, executed verbatim.
//
// The existence check, drop and create run in one transaction on a dedicated
// session that also holds the object lock. When the object is absent and
// policy forbids creation, the transaction is rolled back before any DDL.
// Every error is a *types.Failure of kind ApplyFailure.
func (a *Applier) Apply(ctx context.Context, conn *database.Conn, id types.ObjectIdentity, text string, policy Policy) (outcome Outcome, err error) {
	log := a.logger.WithTarget(conn.Server, conn.Database).WithObject(id.Type.String(), id.Name)
	fail := func(err error) error {
		return types.NewFailure(types.ApplyFailure, conn.Label(), id.Name, err)
	}

	session, err := conn.DB.Conn(ctx)
	if err != nil {
		return 0, fail(fmt.Errorf("failed to open session: %w", err))
	}
	defer session.Close()

	objectLock := lock.NewObjectLock(session, conn.Dialect, id)
	err = objectLock.WithLock(ctx, a.lockTimeout, func() error {
		var txErr error
		outcome, txErr = a.applyInTx(ctx, session, conn, id, text, policy, log)
		return txErr
	})
	if errors.Is(err, lock.ErrReleaseFailed) {
		// The DDL is committed and the lock ends with the session.
		log.Warnf("%v", err)
		err = nil
	}
	if err != nil {
		var f *types.Failure
		if errors.As(err, &f) {
			return 0, err
		}
		return 0, fail(err)
	}

	log.Infof("%s %s", id, outcome)
	return outcome, nil
}

// applyInTx runs the existence check, drop and create in one transaction on
// session. Errors are *types.Failure values.
func (a *Applier) applyInTx(ctx context.Context, session *sql.Conn, conn *database.Conn, id types.ObjectIdentity, text string, policy Policy, log *logger.Logger) (outcome Outcome, err error) {
	fail := func(err error) error {
		return types.NewFailure(types.ApplyFailure, conn.Label(), id.Name, err)
	}

	tx, err := session.BeginTx(ctx, nil)
	if err != nil {
		return 0, fail(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("Rollback failed: %v", rbErr)
			}
		}
	}()

	exists, err := catalog.NewReader(conn, a.logger).Exists(ctx, tx, id.Type, id.Name)
	if err != nil {
		return 0, fail(err)
	}

	if exists {
		drop, err := conn.Dialect.Drop(id.Type, id.Name)
		if err != nil {
			return 0, fail(err)
		}
		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return 0, fail(fmt.Errorf("drop failed: %w", err))
		}
		outcome = OutcomeReplaced
	} else {
		if !policy.AllowCreate {
			return 0, types.Failuref(types.ApplyFailure, conn.Label(), id.Name,
				"%s '%s' does not exist and creation not permitted", id.Type, id.Name)
		}
		outcome = OutcomeCreated
	}

	if _, err := tx.ExecContext(ctx, text); err != nil {
		return 0, fail(fmt.Errorf("create failed: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return 0, fail(fmt.Errorf("commit failed: %w", err))
	}
	return outcome, nil
}
