// Package orchestrator fans a comparison or sync out across target
// databases and merges the per-task results into one report.
//
// Every task writes a private partial report. Partials are merged only after
// all tasks have returned, so no report is shared between goroutines. Task
// failures become "[ERROR]" entries scoped to their target and never cancel
// sibling tasks. Only failures on the base database abort a run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/schemasync/internal/catalog"
	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/differ"
	"github.com/dbsmedya/schemasync/internal/graph"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/schema"
	"github.com/dbsmedya/schemasync/internal/syncer"
	"github.com/dbsmedya/schemasync/internal/types"
)

// ErrorKey is the object key of a failure that is not tied to one object.
const ErrorKey = "[ERROR]"

// Orchestrator runs one mode across a base and its targets.
type Orchestrator struct {
	connector   database.Connector
	concurrency int
	opts        differ.Options
	rowCounts   config.RowCountConfig
	sync        config.SyncConfig
	logger      *logger.Logger
}

// New creates an Orchestrator. Connections are opened through connector,
// which also owns closing them.
func New(connector database.Connector, cfg *config.Config, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewDefault()
	}
	concurrency := cfg.Processing.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		connector:   connector,
		concurrency: concurrency,
		opts:        differ.Options{ShowContent: cfg.Processing.ShowContent},
		rowCounts:   cfg.RowCounts,
		sync:        cfg.Sync,
		logger:      log,
	}
}

// fanOut runs task(i) for i in [0,n) with bounded concurrency and merges the
// partial reports in index order once every task has finished.
func (o *Orchestrator) fanOut(n int, task func(i int) *report.Report) *report.Report {
	partials := make([]*report.Report, n)
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			partials[i] = task(i)
			return nil
		})
	}
	_ = g.Wait() // tasks never fail; failures are report entries

	merged := report.New()
	for _, p := range partials {
		merged.Merge(p)
	}
	return merged
}

// failed builds the partial report of a task that could not run.
func failed(target config.ConnectionConfig, object string, err error) *report.Report {
	rep := report.New()
	rep.Add(target.Server, target.Database, object, report.Lines{"[ERROR] " + err.Error()})
	return rep
}

// openBase opens the base connection. Failure is fatal for the run.
func (o *Orchestrator) openBase(ctx context.Context, base config.ConnectionConfig) (*database.Conn, error) {
	conn, err := o.connector.Open(ctx, base)
	if err != nil {
		return nil, types.NewFailure(types.ConnectivityFailure, base.Server+"/"+base.Database, "", fmt.Errorf("base database: %w", err))
	}
	return conn, nil
}

// CompareSchemas diffs the structure of tables between base and each target.
func (o *Orchestrator) CompareSchemas(ctx context.Context, base config.ConnectionConfig, targets []config.ConnectionConfig, tables []string) (*report.Report, error) {
	baseConn, err := o.openBase(ctx, base)
	if err != nil {
		return nil, err
	}
	baseSnap, err := catalog.NewReader(baseConn, o.logger).Snapshot(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to read base schema: %w", err)
	}
	o.logger.Infof("Read base schema for %d tables from %s", len(baseSnap.Tables), baseConn.Label())

	return o.fanOut(len(targets), func(i int) *report.Report {
		return o.compareSchemaTarget(ctx, baseSnap, targets[i], tables)
	}), nil
}

func (o *Orchestrator) compareSchemaTarget(ctx context.Context, baseSnap *schema.Snapshot, target config.ConnectionConfig, tables []string) *report.Report {
	log := o.logger.WithTarget(target.Server, target.Database)
	conn, err := o.connector.Open(ctx, target)
	if err != nil {
		log.Errorf("Connect failed: %v", err)
		return failed(target, ErrorKey, err)
	}
	snap, err := catalog.NewReader(conn, o.logger).Snapshot(ctx, tables)
	if err != nil {
		log.Errorf("Schema read failed: %v", err)
		return failed(target, ErrorKey, err)
	}

	rep := report.New()
	for _, table := range tables {
		if rec := differ.CompareTable(baseSnap, snap, table, o.opts); rec != nil {
			rep.Add(target.Server, target.Database, table, rec)
		}
	}
	log.Debugf("Compared %d tables", len(tables))
	return rep
}

// CompareDefinitions diffs procedure or view definitions between base and
// each target. For views it also runs the row-count check when enabled.
func (o *Orchestrator) CompareDefinitions(ctx context.Context, kind types.ObjectType, base config.ConnectionConfig, targets []config.ConnectionConfig, names []string) (*report.Report, error) {
	testServer, err := o.testServerRule(kind)
	if err != nil {
		return nil, err
	}

	baseConn, err := o.openBase(ctx, base)
	if err != nil {
		return nil, err
	}
	baseDefs, err := catalog.NewReader(baseConn, o.logger).Definitions(ctx, kind, names)
	if err != nil {
		return nil, fmt.Errorf("failed to read base definitions: %w", err)
	}
	o.logger.Infof("Read %d %s definitions from %s", len(baseDefs), kind, baseConn.Label())

	return o.fanOut(len(targets), func(i int) *report.Report {
		return o.compareDefinitionTarget(ctx, kind, baseDefs, targets[i], names, testServer)
	}), nil
}

func (o *Orchestrator) compareDefinitionTarget(ctx context.Context, kind types.ObjectType, baseDefs map[string]schema.Definition,
	target config.ConnectionConfig, names []string, testServer func(string) string) *report.Report {
	log := o.logger.WithTarget(target.Server, target.Database)
	conn, err := o.connector.Open(ctx, target)
	if err != nil {
		log.Errorf("Connect failed: %v", err)
		return failed(target, ErrorKey, err)
	}
	reader := catalog.NewReader(conn, o.logger)
	defs, err := reader.Definitions(ctx, kind, names)
	if err != nil {
		log.Errorf("Definition read failed: %v", err)
		return failed(target, ErrorKey, err)
	}

	var counts map[string]report.Lines
	if testServer != nil {
		counts = o.compareRowCounts(ctx, reader, target, names, testServer)
	}

	rep := report.New()
	for _, name := range names {
		id := types.ObjectIdentity{Type: kind, Name: name}
		lines := differ.CompareObject(id, baseDefs, defs, o.opts)
		lines = append(lines, counts[name]...)
		if len(lines) > 0 {
			rep.Add(target.Server, target.Database, id.Label(), lines)
		}
	}
	return rep
}

// testServerRule returns the target -> test server mapping, or nil when the
// row-count check does not apply.
func (o *Orchestrator) testServerRule(kind types.ObjectType) (func(string) string, error) {
	if !o.rowCounts.Enabled || kind != types.View {
		return nil, nil
	}
	re, err := regexp.Compile(o.rowCounts.TestServerPattern)
	if err != nil {
		return nil, types.Failuref(types.InputFailure, "", "", "invalid test_server_pattern: %v", err)
	}
	replacement := o.rowCounts.TestServerReplacement
	return func(server string) string {
		return re.ReplaceAllString(server, replacement)
	}, nil
}

// compareRowCounts counts every view on the target and on its test server.
// Views whose counts agree get no lines.
func (o *Orchestrator) compareRowCounts(ctx context.Context, reader *catalog.Reader, target config.ConnectionConfig,
	names []string, testServer func(string) string) map[string]report.Lines {
	test := target
	test.Server = testServer(target.Server)

	var testReader *catalog.Reader
	testConn, testErr := o.connector.Open(ctx, test)
	if testErr == nil {
		testReader = catalog.NewReader(testConn, o.logger)
	} else {
		o.logger.WithTarget(test.Server, test.Database).Warnf("Test server unavailable: %v", testErr)
	}

	out := make(map[string]report.Lines)
	for _, name := range names {
		targetCount, targetErr := reader.RowCount(ctx, name)
		var testCount int64
		err := testErr
		if testReader != nil {
			testCount, err = testReader.RowCount(ctx, name)
		}

		switch {
		case targetErr != nil || err != nil:
			out[name] = report.Lines{fmt.Sprintf("Query error: Target=%s, Test=%s",
				countText(targetCount, targetErr), countText(testCount, err))}
		case targetCount != testCount:
			out[name] = report.Lines{fmt.Sprintf("Row count mismatch: Target=%d, Test=%d", targetCount, testCount)}
		}
	}
	return out
}

func countText(n int64, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("%d", n)
}

// Sync applies the base definition of every named object to each target.
// There is one task per object. With dependency ordering enabled, objects
// are grouped into waves and a wave starts only after the previous one has
// finished, so referenced objects exist before their dependents are created.
func (o *Orchestrator) Sync(ctx context.Context, kind types.ObjectType, base config.ConnectionConfig, targets []config.ConnectionConfig, names []string) (*report.Report, error) {
	baseConn, err := o.openBase(ctx, base)
	if err != nil {
		return nil, err
	}

	waves, err := o.Waves(ctx, baseConn, kind, names)
	if err != nil {
		return nil, err
	}

	s, err := syncer.NewSyncer(o.sync, o.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	// Targets are opened once; an unreachable target fails every object.
	rep := report.New()
	var live []*database.Conn
	for _, t := range targets {
		conn, err := o.connector.Open(ctx, t)
		if err != nil {
			o.logger.WithTarget(t.Server, t.Database).Errorf("Connect failed: %v", err)
			for _, name := range names {
				id := types.ObjectIdentity{Type: kind, Name: name}
				rep.Add(t.Server, t.Database, id.Label(), report.Lines{syncer.MsgFailed + err.Error()})
			}
			continue
		}
		live = append(live, conn)
	}

	for n, wave := range waves {
		wave := wave
		o.logger.WithFields(map[string]interface{}{"wave": n + 1, "objects": len(wave)}).
			Debugf("Sync wave %d/%d", n+1, len(waves))
		rep.Merge(o.fanOut(len(wave), func(i int) *report.Report {
			return s.SyncObject(ctx, baseConn, live, types.ObjectIdentity{Type: kind, Name: wave[i]})
		}))
	}
	return rep, nil
}

// Waves returns the order in which names are synchronized. Without
// dependency ordering all names form one wave. A reference cycle also
// degrades to one wave, since the engine resolves procedure references late.
func (o *Orchestrator) Waves(ctx context.Context, baseConn *database.Conn, kind types.ObjectType, names []string) ([][]string, error) {
	if !o.sync.OrderByDependencies {
		return [][]string{names}, nil
	}
	deps, err := catalog.NewReader(baseConn, o.logger).Dependencies(ctx, kind, names)
	if err != nil {
		return nil, fmt.Errorf("failed to read base dependencies: %w", err)
	}
	waves, err := graph.BuildWaves(names, deps)
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			o.logger.Warnf("Dependency ordering disabled: %v", err)
			return [][]string{names}, nil
		}
		return nil, types.NewFailure(types.InputFailure, "", "", err)
	}
	return waves, nil
}

// OpenBase is exposed for commands that need the base connection directly.
func (o *Orchestrator) OpenBase(ctx context.Context, base config.ConnectionConfig) (*database.Conn, error) {
	return o.openBase(ctx, base)
}
