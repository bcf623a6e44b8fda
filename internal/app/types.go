package app

import "github.com/autodd/autodd/internal/report"

type Mode string

const (
	ModeUpdate   Mode = "update"
	ModeReport   Mode = "report"
	ModeSecurity Mode = "security"
)

const (
	StrategyStatement  = "statement"
	StrategyTreeSitter = "tree-sitter"
)

type Request struct {
	Mode       Mode
	RepoPath   string
	ConfigPath string
	Format     report.Format
	Strategy   string
	DryRun     bool
	Debug      bool
}

func DefaultRequest() Request {
	return Request{
		Mode:     ModeUpdate,
		RepoPath: ".",
		Format:   report.FormatText,
		Strategy: StrategyStatement,
	}
}
