// Package report renders dependency usage and outdated-version reports from
// a manifest and the reference set the scan produced.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/autodd/autodd/internal/manifest"
	"github.com/autodd/autodd/internal/refset"
)

// Resolver resolves a package name to its latest published version.
type Resolver interface {
	ResolveLatest(ctx context.Context, name string) (string, error)
}

type UsageEntry struct {
	Name            string   `json:"name"`
	Declared        string   `json:"declared,omitempty"`
	Latest          string   `json:"latest,omitempty"`
	UpdateAvailable bool     `json:"updateAvailable"`
	UsageCount      int      `json:"usageCount"`
	UsedIn          []string `json:"usedIn,omitempty"`
	Note            string   `json:"note,omitempty"`
}

type UsageReport struct {
	SchemaVersion string       `json:"schemaVersion"`
	GeneratedAt   time.Time    `json:"generatedAt"`
	ProjectRoot   string       `json:"projectRoot"`
	Dependencies  []UsageEntry `json:"dependencies"`
}

type SecurityFinding struct {
	Name     string `json:"name"`
	Declared string `json:"declared"`
	Latest   string `json:"latest"`
}

type SecurityReport struct {
	SchemaVersion string            `json:"schemaVersion"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	ProjectRoot   string            `json:"projectRoot"`
	Outdated      []SecurityFinding `json:"outdated"`
}

// Reporter assembles reports for one project. Now is swappable so tests get
// stable timestamps.
type Reporter struct {
	ProjectRoot string
	Resolver    Resolver
	Now         func() time.Time
}

func NewReporter(projectRoot string, resolver Resolver) *Reporter {
	return &Reporter{ProjectRoot: projectRoot, Resolver: resolver, Now: time.Now}
}

// BuildUsage walks every declared dependency: declared and latest versions,
// update marker, and the usage sites the scan recorded. Registry failures
// become per-entry notes, never errors.
func (r *Reporter) BuildUsage(ctx context.Context, doc *manifest.Document, refs refset.Set) UsageReport {
	out := UsageReport{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   r.Now().UTC(),
		ProjectRoot:   r.ProjectRoot,
		Dependencies:  make([]UsageEntry, 0),
	}

	depsTable := doc.DependencyTablePath()
	for _, name := range doc.Keys(depsTable) {
		entry := UsageEntry{Name: name}

		if value, ok := doc.Entry(depsTable, name); ok {
			if declared, ok := value.VersionRequirement(); ok {
				entry.Declared = declared
			}
		}

		if entry.Declared != "" {
			latest, err := r.Resolver.ResolveLatest(ctx, name)
			if err != nil {
				entry.Note = fmt.Sprintf("latest version check failed: %v", err)
			} else {
				entry.Latest = latest
				entry.UpdateAvailable = NeedsUpdate(entry.Declared, latest)
			}
		}

		if ref, ok := refs[name]; ok {
			entry.UsageCount = ref.UsageCount()
			entry.UsedIn = ref.UsageSites()
		} else {
			entry.Note = joinNotes(entry.Note, "no usage detected in the project")
		}

		out.Dependencies = append(out.Dependencies, entry)
	}

	return out
}

// BuildSecurity lists the declared dependencies whose pinned version is
// older than the latest registry release. Entries the registry cannot
// resolve are silently skipped.
func (r *Reporter) BuildSecurity(ctx context.Context, doc *manifest.Document) SecurityReport {
	out := SecurityReport{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   r.Now().UTC(),
		ProjectRoot:   r.ProjectRoot,
		Outdated:      make([]SecurityFinding, 0),
	}

	depsTable := doc.DependencyTablePath()
	for _, name := range doc.Keys(depsTable) {
		value, ok := doc.Entry(depsTable, name)
		if !ok {
			continue
		}
		declared, ok := value.VersionRequirement()
		if !ok {
			continue
		}
		latest, err := r.Resolver.ResolveLatest(ctx, name)
		if err != nil {
			continue
		}
		if NeedsUpdate(declared, latest) {
			out.Outdated = append(out.Outdated, SecurityFinding{Name: name, Declared: declared, Latest: latest})
		}
	}

	return out
}

// WriteUsage renders the usage report to w in the requested format.
func WriteUsage(w io.Writer, rep UsageReport, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, rep)
	}

	fmt.Fprintf(w, "Dependency Usage Report\n=======================\n\n")
	if len(rep.Dependencies) == 0 {
		fmt.Fprintf(w, "No dependencies declared.\n")
		return nil
	}
	for _, entry := range rep.Dependencies {
		fmt.Fprintf(w, "%s\n", entry.Name)
		if entry.Declared != "" {
			fmt.Fprintf(w, "  version: %s\n", entry.Declared)
		}
		switch {
		case entry.UpdateAvailable:
			fmt.Fprintf(w, "  update available: %s -> %s\n", entry.Declared, entry.Latest)
		case entry.Latest != "":
			fmt.Fprintf(w, "  up to date\n")
		}
		if entry.Note != "" {
			fmt.Fprintf(w, "  note: %s\n", entry.Note)
		}
		if entry.UsageCount > 0 {
			fmt.Fprintf(w, "  used in %d file(s)\n", entry.UsageCount)
			for _, site := range entry.UsedIn {
				fmt.Fprintf(w, "    - %s\n", site)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteSecurity renders the outdated-version report to w.
func WriteSecurity(w io.Writer, rep SecurityReport, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, rep)
	}

	fmt.Fprintf(w, "Dependency Security Report\n==========================\n\n")
	if len(rep.Outdated) == 0 {
		fmt.Fprintf(w, "All dependencies are up to date.\n")
		return nil
	}
	fmt.Fprintf(w, "The following dependencies have updates available:\n\n")
	for _, finding := range rep.Outdated {
		fmt.Fprintf(w, "%s\n  update available: %s -> %s\n\n", finding.Name, finding.Declared, finding.Latest)
	}
	fmt.Fprintf(w, "For a complete security audit use cargo audit (https://github.com/rustsec/rustsec).\n")
	return nil
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// NeedsUpdate reports whether latest is strictly newer than the declared
// requirement. Requirement prefixes are stripped before comparison, and
// versions that still fail to parse compare as up to date.
func NeedsUpdate(declared, latest string) bool {
	current, err := semver.NewVersion(StripRequirementPrefix(declared))
	if err != nil {
		return false
	}
	latestVersion, err := semver.NewVersion(StripRequirementPrefix(latest))
	if err != nil {
		return false
	}
	return latestVersion.GreaterThan(current)
}

// StripRequirementPrefix removes a leading ^ ~ = < > <= >= operator.
func StripRequirementPrefix(version string) string {
	version = strings.TrimSpace(version)
	switch {
	case strings.HasPrefix(version, ">="), strings.HasPrefix(version, "<="):
		return strings.TrimSpace(version[2:])
	case strings.HasPrefix(version, "^"), strings.HasPrefix(version, "~"),
		strings.HasPrefix(version, "="), strings.HasPrefix(version, ">"),
		strings.HasPrefix(version, "<"):
		return strings.TrimSpace(version[1:])
	default:
		return version
	}
}

func joinNotes(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "; " + added
}
