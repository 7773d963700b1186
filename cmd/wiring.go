package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/config"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/roledocs"
	"github.com/beehive-org/beehive/internal/store"
	"github.com/beehive-org/beehive/internal/store/sqlite"
	"github.com/beehive-org/beehive/internal/store/viewcache"
	"github.com/beehive-org/beehive/internal/supervisor"
	"github.com/beehive-org/beehive/internal/tasks"
	"github.com/beehive-org/beehive/internal/tracing"
)

// hive is the fully-wired component graph every subcommand's RunE builds
// from the loaded Config, mirroring the teacher's pattern of assembling
// collaborators in one place rather than scattering construction.
type hive struct {
	cfg        config.Config
	db         *sqlite.DB
	store      store.Store
	panes      *panes.Table
	injector   *injector.Injector
	bus        *bus.Bus
	tasks      *tasks.Engine
	supervisor *supervisor.Supervisor
	tracing    *tracing.Provider
}

// buildHive wires Store -> Panes -> Injector -> Bus -> Task Engine ->
// Supervisor from cfg. Callers must call Close when done.
func buildHive(cfg config.Config) (*hive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.EnsureDBDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("preparing database directory: %w", err)
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	paneTable, err := panes.NewTable(cfg.PaneMapping)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("building pane table: %w", err)
	}

	var st store.Store = db
	st = viewcache.New(st, 0)

	provider, err := tracing.NewProvider(tracing.DefaultConfig())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("starting tracing: %w", err)
	}
	tracer := provider.Tracer()

	mux := injector.NewTmux(cfg.TmuxBinPath)
	inj := injector.New(mux, paneTable, st, cfg.SessionName, tracer, cfg.InjectorConcurrency, cfg.DryRun)
	b := bus.New(st, inj, tracer)
	engine := tasks.New(st, b, tracer)
	sup := supervisor.New(st, b, inj, paneTable, cfg, tracer)

	return &hive{
		cfg: cfg, db: db, store: st, panes: paneTable,
		injector: inj, bus: b, tasks: engine, supervisor: sup, tracing: provider,
	}, nil
}

// Close releases every resource buildHive opened, in reverse order.
func (h *hive) Close() error {
	ctx := context.Background()
	if h.tracing != nil {
		_ = h.tracing.Shutdown(ctx)
	}
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// roleDocsDir is where per-bee role documents live, alongside the
// database rather than configurable separately: both are hive state.
func roleDocsDir(cfg config.Config) string {
	return "hive/roles"
}

func loadRoleDocs(cfg config.Config) ([]supervisor.RoleDoc, error) {
	return roledocs.LoadAll(roleDocsDir(cfg))
}

// loadConfig reads --config/flags/env/defaults into a config.Config, the
// shared entrypoint every subcommand's PersistentPreRunE-adjacent setup
// calls before building a hive.
func loadConfig() (config.Config, error) {
	v := viper.New()
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// hiveFromFlags loads config and builds a hive, wrapping load/build errors
// in the generic exit code. Shared prologue for every subcommand.
func hiveFromFlags() (*hive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, exitErr(ExitError, err)
	}
	h, err := buildHive(cfg)
	if err != nil {
		return nil, exitErr(ExitError, err)
	}
	return h, nil
}

// beeArg parses a free-form bee-name argument, validating it against the
// closed set.
func beeArg(s string) (domain.BeeName, error) {
	bee := domain.BeeName(s)
	if !bee.IsWorker() {
		return "", fmt.Errorf("unknown bee %q: must be one of queen, developer, qa, analyst", s)
	}
	return bee, nil
}
