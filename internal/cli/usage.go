package cli

const usage = `Usage:
  autodd [update] [--repo PATH] [--config PATH] [--strategy statement|tree-sitter] [--dry-run] [--debug]
  autodd report [--repo PATH] [--config PATH] [--format text|json] [--debug]
  autodd security [--repo PATH] [--config PATH] [--format text|json] [--debug]

Modes:
  update    Reconcile Cargo.toml with the crates the source actually uses (default)
  report    Show every declared dependency with versions and usage sites
  security  List declared dependencies with newer registry releases

Options:
  --repo PATH             Project path (default: .)
  --config PATH           Policy file (default: .autodd.yml/.autodd.yaml/.autodd.toml at the project root)
  --format text|json      Report output format (default: text)
  --strategy NAME         Import extraction strategy: statement or tree-sitter (default: statement)
  --dry-run               Print planned additions/removals without writing
  --debug                 Debug logging
  -h, --help              Show this help text
`

func Usage() string {
	return usage
}
