// Package reconcile brings a manifest's dependency table in line with the
// package references discovered by scanning source.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/autodd/autodd/internal/config"
	"github.com/autodd/autodd/internal/manifest"
	"github.com/autodd/autodd/internal/refset"
)

const devDependencyTable = "dev-dependencies"

// Resolver resolves a package name to its latest published version.
type Resolver interface {
	ResolveLatest(ctx context.Context, name string) (string, error)
}

// Updater mutates a manifest document so its dependency table matches a
// reference set. Protected entries are never removed: path dependencies,
// essential names, and anything on the config exclude list stays put.
type Updater struct {
	Resolver Resolver
	Config   config.Config
}

// Result describes one reconciliation: what changed and what was skipped.
// Warnings carry per-entry registry failures; they never fail the run.
type Result struct {
	References refset.Set
	Added      []string
	Removed    []string
	Warnings   []string
}

// Apply computes and performs the edits on doc without writing it out.
// A workspace root without its own package table is left untouched.
func (u *Updater) Apply(ctx context.Context, doc *manifest.Document, refs refset.Set) (Result, error) {
	result := Result{
		References: refs,
		Added:      make([]string, 0),
		Removed:    make([]string, 0),
		Warnings:   make([]string, 0),
	}

	if doc.IsWorkspaceRoot() && !doc.HasPackage() {
		return result, nil
	}

	depsTable := doc.DependencyTablePath()
	existing := make(map[string]struct{})
	for _, key := range doc.Keys(depsTable) {
		existing[key] = struct{}{}
	}
	for _, key := range doc.Keys(devDependencyTable) {
		existing[key] = struct{}{}
	}

	for _, name := range refs.Names() {
		if _, ok := existing[name]; ok {
			continue
		}
		if u.Config.ShouldExclude(name) {
			continue
		}
		added, err := u.addDependency(ctx, doc, depsTable, refs[name], &result)
		if err != nil {
			return result, err
		}
		if added {
			result.Added = append(result.Added, name)
		}
	}

	for name := range existing {
		if _, ok := refs[name]; ok {
			continue
		}
		if u.protected(doc, depsTable, name) {
			continue
		}
		if doc.Remove(depsTable, name) {
			result.Removed = append(result.Removed, name)
		}
	}
	sort.Strings(result.Removed)

	return result, nil
}

// Reconcile applies the edits and, when anything changed, writes the
// document back to disk in a single save.
func (u *Updater) Reconcile(ctx context.Context, doc *manifest.Document, refs refset.Set) (Result, error) {
	result, err := u.Apply(ctx, doc, refs)
	if err != nil {
		return result, err
	}
	if len(result.Added) == 0 && len(result.Removed) == 0 {
		return result, nil
	}
	if err := doc.Save(); err != nil {
		return result, fmt.Errorf("write manifest: %w", err)
	}
	return result, nil
}

func (u *Updater) addDependency(ctx context.Context, doc *manifest.Document, depsTable string, ref *refset.Reference, result *Result) (bool, error) {
	targetTable := depsTable
	if u.Config.IsDevOnly(ref.Name) {
		targetTable = devDependencyTable
	}

	if ref.PathDependency {
		doc.SetInlineTable(targetTable, ref.Name, manifest.InlinePathDependency(ref.Path, ref.Publish))
		return true, nil
	}

	if u.Resolver == nil {
		return false, fmt.Errorf("no resolver configured for %s", ref.Name)
	}
	version, err := u.Resolver.ResolveLatest(ctx, ref.Name)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("skipping %s: %v", ref.Name, err))
		return false, nil
	}

	if features := ref.FeatureList(); len(features) > 0 {
		doc.SetInlineTable(targetTable, ref.Name, inlineVersioned(version, features))
		return true, nil
	}
	doc.SetString(targetTable, ref.Name, version)
	return true, nil
}

// protected reports whether an unused entry must survive removal.
func (u *Updater) protected(doc *manifest.Document, depsTable, name string) bool {
	if u.Config.IsEssential(name) {
		return true
	}
	value, ok := doc.Entry(depsTable, name)
	if !ok {
		return false
	}
	_, isPath := value.PathField()
	return isPath
}

func inlineVersioned(version string, features []string) string {
	quoted := make([]string, len(features))
	for i, feature := range features {
		quoted[i] = fmt.Sprintf("%q", feature)
	}
	return fmt.Sprintf("{ version = %q, features = [%s] }", version, strings.Join(quoted, ", "))
}
