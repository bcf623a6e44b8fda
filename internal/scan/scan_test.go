package scan

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/autodd/autodd/internal/refset"
)

func writeSource(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
}

func newScanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	scanner, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return scanner
}

func TestScanRecordsUsageSites(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/main.rs", "use serde::Deserialize;\nuse tokio;\n")
	writeSource(t, root, "src/lib.rs", "use serde::Serialize;\n")

	refs := make(refset.Set)
	if err := newScanner(t).Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if got := refs.Names(); !slices.Equal(got, []string{"serde", "tokio"}) {
		t.Fatalf("names = %v, want [serde tokio]", got)
	}
	serde := refs["serde"]
	if serde.UsageCount() != 2 {
		t.Fatalf("serde usage count = %d, want 2", serde.UsageCount())
	}
	if got := serde.UsageSites(); !slices.Equal(got, []string{"src/lib.rs", "src/main.rs"}) {
		t.Fatalf("serde usage sites = %v", got)
	}
}

func TestScanFiltersStdAndPathKeywords(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs",
		"use std::collections::HashMap;\nuse core::fmt;\nuse crate::model;\nuse self::inner;\nuse super::shared;\nuse serde;\n")

	refs := make(refset.Set)
	if err := newScanner(t).Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := refs.Names(); !slices.Equal(got, []string{"serde"}) {
		t.Fatalf("names = %v, want [serde]", got)
	}
}

func TestScanCustomStdCrates(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use rand::Rng;\nuse libc::c_int;\n")

	refs := make(refset.Set)
	scanner := newScanner(t, WithStdCrates([]string{"libc"}))
	if err := scanner.Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := refs.Names(); !slices.Equal(got, []string{"rand"}) {
		t.Fatalf("names = %v, want [rand]", got)
	}
}

func TestScanDropsTestArtifacts(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs",
		"use my_module_test::helper;\nuse integration_tests::setup;\nuse tempfile::TempDir;\nuse crate_helpers::x;\nuse serde;\n")

	refs := make(refset.Set)
	if err := newScanner(t).Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := refs.Names(); !slices.Equal(got, []string{"serde"}) {
		t.Fatalf("names = %v, want [serde]", got)
	}
}

func TestScanSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use serde;\n")
	writeSource(t, root, "tests/integration.rs", "use reqwest;\n")
	writeSource(t, root, "target/debug/gen.rs", "use built_artifact;\n")
	writeSource(t, root, ".git/hooks/sample.rs", "use hidden;\n")
	writeSource(t, root, "build.rs", "use cc;\n")

	refs := make(refset.Set)
	if err := newScanner(t).Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := refs.Names(); !slices.Equal(got, []string{"serde"}) {
		t.Fatalf("names = %v, want [serde]", got)
	}
}

func TestScanIncludesTestDirsWhenConfigured(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use serde;\n")
	writeSource(t, root, "tests/integration.rs", "use reqwest;\n")

	refs := make(refset.Set)
	scanner := newScanner(t, WithTestDirs())
	if err := scanner.Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := refs.Names(); !slices.Equal(got, []string{"reqwest", "serde"}) {
		t.Fatalf("names = %v, want [reqwest serde]", got)
	}
}

func TestScanMergesIntoSeededPathDependency(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use local_helper::run;\n")

	refs := make(refset.Set)
	refs.SeedPathDependency("local_helper", "../helper", nil)
	if err := newScanner(t).Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	ref := refs["local_helper"]
	if ref == nil || !ref.PathDependency || ref.Path != "../helper" {
		t.Fatalf("path dependency metadata lost: %+v", ref)
	}
	if ref.UsageCount() != 1 {
		t.Fatalf("usage count = %d, want 1", ref.UsageCount())
	}
}

func TestScanCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use serde;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refs := make(refset.Set)
	if err := newScanner(t).Scan(ctx, root, refs); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestScanVerboseLog(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/lib.rs", "use serde;\n")

	logged := 0
	scanner := newScanner(t, WithVerboseLog(func(string, ...any) { logged++ }))
	refs := make(refset.Set)
	if err := scanner.Scan(context.Background(), root, refs); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if logged != 1 {
		t.Fatalf("verbose log calls = %d, want 1", logged)
	}
}
