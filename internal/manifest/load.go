package manifest

import (
	"fmt"

	"github.com/autodd/autodd/internal/refset"
)

// SeedDeclared registers the manifest's declared path dependencies in refs.
// Registry-versioned entries are not seeded: their fate is decided by what
// the source scan actually found, while path entries always survive.
func SeedDeclared(doc *Document, refs refset.Set) {
	depsTable := doc.DependencyTablePath()
	publish := doc.PackagePublish()
	for _, key := range doc.Keys(depsTable) {
		value, ok := doc.Entry(depsTable, key)
		if !ok {
			continue
		}
		path, ok := value.PathField()
		if !ok {
			continue
		}
		refs.SeedPathDependency(key, path, publish)
	}
}

// InlinePathDependency renders the inline-table form of a path dependency.
func InlinePathDependency(path string, publish *bool) string {
	if publish != nil {
		return fmt.Sprintf("{ path = %q, publish = %t }", path, *publish)
	}
	return fmt.Sprintf("{ path = %q }", path)
}
