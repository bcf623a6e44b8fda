package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleManifest = `# top comment
[package]
name = "demo"
version = "0.1.0"
edition = "2021"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
tokio = "1.38" # async runtime
local_helper = { path = "../helper" }

[dependencies.reqwest]
version = "0.12"
default-features = false

[dev-dependencies]
tempfile = "3"
`

func TestParseRoundTripPreservesBytes(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := string(doc.Bytes()); got != sampleManifest {
		t.Fatalf("round trip changed bytes:\n--- got ---\n%s\n--- want ---\n%s", got, sampleManifest)
	}
}

func TestParseRoundTripWithoutFinalNewline(t *testing.T) {
	source := "[package]\nname = \"demo\"\n\n[dependencies]\nserde = \"1.0\""
	doc, err := Parse([]byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := string(doc.Bytes()); got != source {
		t.Fatalf("round trip changed bytes:\n--- got ---\n%q\n--- want ---\n%q", got, source)
	}
}

func TestParseRejectsInvalidTOML(t *testing.T) {
	_, err := Parse([]byte("[package\nname ="))
	if !errors.Is(err, ErrManifestParse) {
		t.Fatalf("err = %v, want ErrManifestParse", err)
	}
}

func TestKeysIncludeSectionEntries(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := doc.Keys("dependencies")
	want := []string{"serde", "tokio", "local_helper", "reqwest"}
	if !slices.Equal(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

func TestEntryShapes(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tokio, ok := doc.Entry("dependencies", "tokio")
	if !ok {
		t.Fatal("tokio entry missing")
	}
	if version, ok := tokio.AsString(); !ok || version != "1.38" {
		t.Fatalf("tokio version = %q, %v", version, ok)
	}

	serde, ok := doc.Entry("dependencies", "serde")
	if !ok {
		t.Fatal("serde entry missing")
	}
	if version, ok := serde.VersionRequirement(); !ok || version != "1.0" {
		t.Fatalf("serde version = %q, %v", version, ok)
	}
	if _, ok := serde.PathField(); ok {
		t.Fatal("serde should not have a path field")
	}

	helper, ok := doc.Entry("dependencies", "local_helper")
	if !ok {
		t.Fatal("local_helper entry missing")
	}
	if path, ok := helper.PathField(); !ok || path != "../helper" {
		t.Fatalf("local_helper path = %q, %v", path, ok)
	}

	reqwest, ok := doc.Entry("dependencies", "reqwest")
	if !ok {
		t.Fatal("reqwest section entry missing")
	}
	if version, ok := reqwest.VersionRequirement(); !ok || version != "0.12" {
		t.Fatalf("reqwest version = %q, %v", version, ok)
	}
}

func TestSetStringUpdatesInPlace(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc.SetString("dependencies", "tokio", "1.40.0")

	rendered := string(doc.Bytes())
	if !strings.Contains(rendered, `tokio = "1.40.0"`) {
		t.Fatalf("tokio not updated:\n%s", rendered)
	}
	if !strings.Contains(rendered, "# top comment") {
		t.Fatal("comment lost on edit")
	}
	if strings.Count(rendered, "tokio") != 1 {
		t.Fatalf("tokio duplicated:\n%s", rendered)
	}
}

func TestSetStringUpdatesSectionVersion(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc.SetString("dependencies", "reqwest", "0.12.9")

	rendered := string(doc.Bytes())
	if !strings.Contains(rendered, "[dependencies.reqwest]") {
		t.Fatal("section header lost")
	}
	if !strings.Contains(rendered, `version = "0.12.9"`) {
		t.Fatalf("section version not updated:\n%s", rendered)
	}
	if !strings.Contains(rendered, "default-features = false") {
		t.Fatal("sibling field lost")
	}
}

func TestSetStringAppendsNewEntry(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc.SetString("dependencies", "anyhow", "1.0.86")

	reparsed, err := Parse(doc.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	value, ok := reparsed.Entry("dependencies", "anyhow")
	if !ok {
		t.Fatalf("anyhow missing after append:\n%s", doc.Bytes())
	}
	if version, _ := value.AsString(); version != "1.0.86" {
		t.Fatalf("anyhow version = %q", version)
	}
}

func TestSetStringCreatesMissingTable(t *testing.T) {
	doc, err := Parse([]byte("[package]\nname = \"demo\"\nversion = \"0.1.0\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc.SetString("dependencies", "serde", "1.0.200")

	rendered := string(doc.Bytes())
	if !strings.Contains(rendered, "[dependencies]") {
		t.Fatalf("table not created:\n%s", rendered)
	}
	if _, err := Parse(doc.Bytes()); err != nil {
		t.Fatalf("edited manifest no longer parses: %v", err)
	}
}

func TestRemoveEntryAndSection(t *testing.T) {
	doc, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !doc.Remove("dependencies", "tokio") {
		t.Fatal("tokio not removed")
	}
	if !doc.Remove("dependencies", "reqwest") {
		t.Fatal("reqwest section not removed")
	}
	if doc.Remove("dependencies", "missing") {
		t.Fatal("removing absent key reported true")
	}

	rendered := string(doc.Bytes())
	if strings.Contains(rendered, "tokio") || strings.Contains(rendered, "reqwest") {
		t.Fatalf("removed entries still present:\n%s", rendered)
	}
	if _, err := Parse(doc.Bytes()); err != nil {
		t.Fatalf("edited manifest no longer parses: %v", err)
	}
}

func TestWorkspaceDetection(t *testing.T) {
	workspace := "[workspace]\nmembers = [\"crates/a\"]\n\n[workspace.dependencies]\nserde = \"1\"\n"
	doc, err := Parse([]byte(workspace))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !doc.IsWorkspaceRoot() {
		t.Fatal("workspace root not detected")
	}
	if doc.HasPackage() {
		t.Fatal("phantom package table")
	}
	if got := doc.DependencyTablePath(); got != "workspace.dependencies" {
		t.Fatalf("dependency table = %q", got)
	}
	if got := doc.Keys("workspace.dependencies"); !slices.Equal(got, []string{"serde"}) {
		t.Fatalf("workspace deps = %v", got)
	}
}

func TestPackageAccessors(t *testing.T) {
	doc, err := Parse([]byte("[package]\nname = \"demo\"\npublish = false\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := doc.PackageName(); got != "demo" {
		t.Fatalf("name = %q", got)
	}
	publish := doc.PackagePublish()
	if publish == nil || *publish {
		t.Fatalf("publish = %v, want false", publish)
	}
	if got := doc.DependencyTablePath(); got != "dependencies" {
		t.Fatalf("dependency table = %q", got)
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	doc.SetString("dependencies", "tokio", "1.40.0")
	if err := doc.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), `tokio = "1.40.0"`) {
		t.Fatalf("saved manifest missing update:\n%s", data)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, ErrManifestRead) {
		t.Fatalf("err = %v, want ErrManifestRead", err)
	}
}
