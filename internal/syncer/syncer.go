package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/dbsmedya/schemasync/internal/catalog"
	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/types"
	"github.com/dbsmedya/schemasync/internal/verifier"
)

// Report messages for sync results.
const (
	MsgSuccess            = "Sync successful"
	MsgFailed             = "[ERROR] Sync failed: "
	MsgBaseFetchFailed    = "[ERROR] Failed to get definition from base: "
	MsgVerificationFailed = "[ERROR] Sync verification failed: "
	MsgEmptyDefinition    = "Definition is empty or not found."
)

// Syncer copies the authored base text of an object to each target.
type Syncer struct {
	applier  *Applier
	verifier *verifier.Verifier // nil when verification is off
	policy   Policy
	cache    *ristretto.Cache[string, string] // nil when caching is off
	logger   *logger.Logger
}

// NewSyncer builds a Syncer from sync settings. Close releases its cache.
func NewSyncer(cfg config.SyncConfig, log *logger.Logger) (*Syncer, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	s := &Syncer{
		applier: NewApplier(time.Duration(cfg.LockTimeoutSeconds)*time.Second, log),
		policy:  Policy{AllowCreate: cfg.AllowCreateNew},
		logger:  log,
	}

	if cfg.Verify {
		v, err := verifier.NewVerifier(verifier.VerificationMethod(cfg.VerifyMethod), log)
		if err != nil {
			return nil, err
		}
		s.verifier = v
	}

	if cfg.CacheMaxCost > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
			NumCounters: 1e4,
			MaxCost:     cfg.CacheMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Close releases the definition cache.
func (s *Syncer) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// SyncObject reads id from base once and applies it to every target in order.
// Per-target failures never stop the remaining targets; each target gets one
// report entry keyed by its own server and database.
func (s *Syncer) SyncObject(ctx context.Context, base *database.Conn, targets []*database.Conn, id types.ObjectIdentity) *report.Report {
	rep := report.New()
	log := s.logger.WithObject(id.Type.String(), id.Name)

	text, err := s.baseDefinition(ctx, base, id)
	if err != nil {
		log.Errorf("Failed to get definition from base %s: %v", base.Label(), err)
		for _, t := range targets {
			rep.Add(t.Server, t.Database, id.Label(), report.Lines{MsgBaseFetchFailed + err.Error()})
		}
		return rep
	}

	for _, t := range targets {
		rep.Add(t.Server, t.Database, id.Label(), s.syncTarget(ctx, t, id, text))
	}
	return rep
}

func (s *Syncer) syncTarget(ctx context.Context, target *database.Conn, id types.ObjectIdentity, text string) report.Value {
	log := s.logger.WithTarget(target.Server, target.Database).WithObject(id.Type.String(), id.Name)

	if _, err := s.applier.Apply(ctx, target, id, text, s.policy); err != nil {
		log.Errorf("Sync failed: %v", err)
		return report.Lines{MsgFailed + err.Error()}
	}

	if s.verifier != nil {
		if _, err := s.verifier.Verify(ctx, catalog.NewReader(target, s.logger), id, text); err != nil {
			log.Errorf("Sync verification failed: %v", err)
			return report.Lines{MsgVerificationFailed + err.Error()}
		}
	}
	return report.Lines{MsgSuccess}
}

// baseDefinition returns the raw base text of id, consulting the cache first.
func (s *Syncer) baseDefinition(ctx context.Context, base *database.Conn, id types.ObjectIdentity) (string, error) {
	key := cacheKey(base, id)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			return text, nil
		}
	}

	text, err := catalog.NewReader(base, s.logger).RawDefinition(ctx, id.Type, id.Name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", types.Failuref(types.DefinitionFetchFailure, base.Label(), id.Name, MsgEmptyDefinition)
	}

	if s.cache != nil {
		s.cache.Set(key, text, int64(len(text)))
		s.cache.Wait()
	}
	return text, nil
}

func cacheKey(base *database.Conn, id types.ObjectIdentity) string {
	return base.Label() + "|" + id.Type.String() + "|" + strings.ToLower(id.Name)
}
