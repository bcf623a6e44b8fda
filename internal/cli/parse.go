package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/autodd/autodd/internal/app"
	"github.com/autodd/autodd/internal/report"
)

var ErrHelpRequested = errors.New("help requested")

// ParseArgs turns command-line arguments into an app request. The first
// positional selects the mode; no positional means update.
func ParseArgs(args []string) (app.Request, error) {
	req := app.DefaultRequest()
	if len(args) > 0 && isHelpArg(args[0]) {
		return req, ErrHelpRequested
	}

	mode := app.ModeUpdate
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case string(app.ModeUpdate), string(app.ModeReport), string(app.ModeSecurity):
			mode = app.Mode(args[0])
			args = args[1:]
		default:
			return req, fmt.Errorf("unknown command: %s", args[0])
		}
	}

	fs := flag.NewFlagSet(string(mode), flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	repoPath := fs.String("repo", req.RepoPath, "project path")
	configPath := fs.String("config", req.ConfigPath, "config file path")
	formatFlag := fs.String("format", string(req.Format), "output format")
	strategy := fs.String("strategy", req.Strategy, "extraction strategy")
	dryRun := fs.Bool("dry-run", false, "print planned changes without writing")
	debug := fs.Bool("debug", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return req, ErrHelpRequested
		}
		return req, err
	}
	if fs.NArg() > 0 {
		return req, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return req, err
	}

	switch *strategy {
	case app.StrategyStatement, app.StrategyTreeSitter:
	default:
		return req, fmt.Errorf("unknown strategy: %s", *strategy)
	}

	req.Mode = mode
	req.RepoPath = strings.TrimSpace(*repoPath)
	req.ConfigPath = strings.TrimSpace(*configPath)
	req.Format = format
	req.Strategy = *strategy
	req.DryRun = *dryRun
	req.Debug = *debug

	if req.RepoPath == "" {
		return req, fmt.Errorf("--repo must not be empty")
	}
	return req, nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}
