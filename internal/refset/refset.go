// Package refset holds the package references discovered by scanning source
// and seeded from manifest declarations, keyed by package name.
package refset

import "sort"

// Reference is one external dependency together with its observed usage.
// Path is non-empty exactly when PathDependency is true.
type Reference struct {
	Name           string
	Features       map[string]struct{}
	UsedIn         map[string]struct{}
	PathDependency bool
	Path           string
	Publish        *bool
}

func New(name string) *Reference {
	return &Reference{
		Name:     name,
		Features: make(map[string]struct{}),
		UsedIn:   make(map[string]struct{}),
	}
}

func NewPathDependency(name, path string) *Reference {
	ref := New(name)
	ref.PathDependency = true
	ref.Path = path
	return ref
}

func (r *Reference) AddUsage(file string) {
	r.UsedIn[file] = struct{}{}
}

func (r *Reference) AddFeature(feature string) {
	r.Features[feature] = struct{}{}
}

func (r *Reference) UsageCount() int {
	return len(r.UsedIn)
}

func (r *Reference) SetPublish(publish bool) {
	r.Publish = &publish
}

func (r *Reference) FeatureList() []string {
	return sortedKeys(r.Features)
}

func (r *Reference) UsageSites() []string {
	return sortedKeys(r.UsedIn)
}

// Set maps package names to their references.
type Set map[string]*Reference

// Ensure returns the reference for name, creating a usage-only entry when
// absent. An existing path-dependency entry is returned as-is so its
// path/publish metadata survives usage merging.
func (s Set) Ensure(name string) *Reference {
	if ref, ok := s[name]; ok {
		return ref
	}
	ref := New(name)
	s[name] = ref
	return ref
}

// AddUsage records one usage site for name, merging into any existing entry.
func (s Set) AddUsage(name, file string) {
	s.Ensure(name).AddUsage(file)
}

// SeedPathDependency registers a manifest-declared path dependency. Names
// already present are left untouched so repeated seeding stays idempotent.
func (s Set) SeedPathDependency(name, path string, publish *bool) {
	if _, ok := s[name]; ok {
		return
	}
	ref := NewPathDependency(name, path)
	if publish != nil {
		ref.SetPublish(*publish)
	}
	s[name] = ref
}

// Retain drops every entry for which keep returns false.
func (s Set) Retain(keep func(name string, ref *Reference) bool) {
	for name, ref := range s {
		if !keep(name, ref) {
			delete(s, name)
		}
	}
}

// Names returns the member names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(values map[string]struct{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
