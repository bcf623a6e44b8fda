// Package app orchestrates one run: load config, scan the tree, load the
// manifest, then dispatch to the requested mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/autodd/autodd/internal/config"
	"github.com/autodd/autodd/internal/manifest"
	"github.com/autodd/autodd/internal/reconcile"
	"github.com/autodd/autodd/internal/refset"
	"github.com/autodd/autodd/internal/registry"
	"github.com/autodd/autodd/internal/report"
	"github.com/autodd/autodd/internal/scan"
	"github.com/autodd/autodd/internal/workspace"
)

var (
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnknownStrategy = errors.New("unknown extraction strategy")
)

// Resolver matches both the reconcile and report collaborator interfaces.
type Resolver interface {
	ResolveLatest(ctx context.Context, name string) (string, error)
}

type App struct {
	Out    io.Writer
	Logger *log.Logger

	// NewResolver is swappable so tests never reach the real registry.
	NewResolver func(projectRoot string) Resolver
}

func New(out io.Writer, logger *log.Logger) *App {
	return &App{
		Out:    out,
		Logger: logger,
		NewResolver: func(projectRoot string) Resolver {
			return registry.NewClient(projectRoot)
		},
	}
}

func (a *App) Execute(ctx context.Context, req Request) error {
	if req.Debug {
		a.Logger.SetLevel(log.DebugLevel)
	}

	projectRoot, err := workspace.NormalizeRepoPath(req.RepoPath)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.Load(projectRoot, req.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		a.Logger.Debug("loaded config", "path", cfg.Path)
	}

	doc, err := manifest.Load(workspace.ManifestPath(projectRoot))
	if err != nil {
		return err
	}

	refs := make(refset.Set)
	scanner, err := a.buildScanner(req, cfg)
	if err != nil {
		return err
	}
	if err := scanner.Scan(ctx, projectRoot, refs); err != nil {
		return fmt.Errorf("scan sources: %w", err)
	}
	manifest.SeedDeclared(doc, refs)
	refs.Retain(func(name string, _ *refset.Reference) bool {
		return !cfg.ShouldExclude(name)
	})
	a.Logger.Debug("scan complete", "packages", len(refs))

	resolver := a.NewResolver(projectRoot)

	switch req.Mode {
	case ModeUpdate:
		return a.executeUpdate(ctx, req, cfg, doc, refs, resolver)
	case ModeReport:
		reporter := a.reporter(projectRoot, resolver)
		return report.WriteUsage(a.Out, reporter.BuildUsage(ctx, doc, refs), req.Format)
	case ModeSecurity:
		reporter := a.reporter(projectRoot, resolver)
		return report.WriteSecurity(a.Out, reporter.BuildSecurity(ctx, doc), req.Format)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, req.Mode)
	}
}

func (a *App) executeUpdate(ctx context.Context, req Request, cfg config.Config, doc *manifest.Document, refs refset.Set, resolver Resolver) error {
	updater := &reconcile.Updater{Resolver: resolver, Config: cfg}

	var (
		result reconcile.Result
		err    error
	)
	if req.DryRun {
		result, err = updater.Apply(ctx, doc, refs)
	} else {
		result, err = updater.Reconcile(ctx, doc, refs)
	}
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		a.Logger.Warn(warning)
	}

	if req.DryRun {
		fmt.Fprintf(a.Out, "dry run: no changes written\n")
	}
	if len(result.Added) == 0 && len(result.Removed) == 0 {
		fmt.Fprintf(a.Out, "manifest already up to date\n")
		return nil
	}
	for _, name := range result.Added {
		fmt.Fprintf(a.Out, "added %s\n", name)
	}
	for _, name := range result.Removed {
		fmt.Fprintf(a.Out, "removed %s\n", name)
	}
	return nil
}

func (a *App) reporter(projectRoot string, resolver Resolver) *report.Reporter {
	return report.NewReporter(projectRoot, resolver)
}

func (a *App) buildScanner(req Request, cfg config.Config) (*scan.Scanner, error) {
	opts := make([]scan.Option, 0, 3)
	if !cfg.SkipTestDirs() {
		opts = append(opts, scan.WithTestDirs())
	}
	if req.Debug {
		opts = append(opts, scan.WithVerboseLog(a.Logger.Debugf))
	}

	switch req.Strategy {
	case "", StrategyStatement:
	case StrategyTreeSitter:
		opts = append(opts, scan.WithStrategy(scan.NewTreeSitterStrategy()))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, req.Strategy)
	}

	return scan.New(opts...)
}
