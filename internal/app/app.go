package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/mcuforge/internal/ctxlog"
	"github.com/vk/mcuforge/internal/layout"
	"github.com/vk/mcuforge/internal/runner"
	"github.com/vk/mcuforge/internal/stepgraph"
	"github.com/vk/mcuforge/internal/variant"
)

// App encapsulates one build run: configuration, logger, variant catalog,
// and directory layout.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	catalog *variant.Catalog
	layout  layout.Layout
}

// NewApp constructs the application from a validated Config. Catalog
// restriction failures are startup configuration errors and panic; the
// entrypoint recovers and turns them into a clean exit.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	catalog := variant.NewCatalog()
	if len(cfg.Variants) > 0 {
		restricted, err := catalog.Restrict(cfg.Variants)
		if err != nil {
			panic(fmt.Errorf("restricting variant catalog: %w", err))
		}
		catalog = restricted
	}
	logger.Debug("Variant catalog ready.", "variants", catalog.Len())

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		catalog: catalog,
		layout:  layout.New(cfg.OutDir),
	}
}

// Catalog returns the app's variant catalog. Primarily for tests.
func (a *App) Catalog() *variant.Catalog {
	return a.catalog
}

// Run resolves the requested steps into a plan and executes it, printing the
// per-step summary at the end. The returned error is non-nil whenever any
// requested step failed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.", "steps", a.config.Steps)

	run := runner.NewExecRunner(a.config.Jobs)

	steps, err := a.buildSteps(run)
	if err != nil {
		return err
	}
	graph, err := stepgraph.NewGraph(steps)
	if err != nil {
		return fmt.Errorf("building step graph: %w", err)
	}

	plan, err := graph.Resolve(a.config.Steps)
	if err != nil {
		return err
	}
	a.logger.Info("Execution plan resolved.", "plan", plan.Names())

	exec := stepgraph.NewExecutor(plan)
	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort, exec)
	}

	statuses, runErr := exec.Run(ctx, plan)
	fmt.Fprint(a.outW, stepgraph.Summarize(statuses))

	a.logger.Debug("App.Run finished.", "failed", runErr != nil)
	return runErr
}
