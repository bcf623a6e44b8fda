// Package manifest reads and edits Cargo.toml files while preserving the
// byte layout of every line the edit does not touch. Comments, blank lines,
// ordering, and unrelated tables survive a load/edit/save round trip.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/autodd/autodd/internal/safeio"
)

const FileName = "Cargo.toml"

var (
	ErrManifestRead  = errors.New("manifest read failed")
	ErrManifestParse = errors.New("manifest parse failed")
)

type rowKind int

const (
	rowBlank rowKind = iota
	rowComment
	rowHeader
	rowEntry
	rowOther
)

// row is one manifest line, or one multi-line value that begins on that
// line. raw holds the exact source text without a trailing newline.
type row struct {
	kind  rowKind
	raw   string
	table string
	key   string
	value string
}

// Document is a parsed manifest. Edits rewrite only the rows they target.
type Document struct {
	path         string
	rows         []row
	finalNewline bool
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := safeio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestRead, path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.path = path
	return doc, nil
}

// Parse builds a Document from raw manifest bytes. The whole input is
// decoded once up front so malformed TOML is rejected before any line-level
// classification runs.
func Parse(data []byte) (*Document, error) {
	var probe map[string]any
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
	}

	text := string(data)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	doc := &Document{
		rows:         make([]row, 0, len(lines)),
		finalNewline: strings.HasSuffix(text, "\n"),
	}

	currentTable := ""
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			doc.rows = append(doc.rows, row{kind: rowBlank, raw: line})
		case strings.HasPrefix(trimmed, "#"):
			doc.rows = append(doc.rows, row{kind: rowComment, raw: line, table: currentTable})
		case strings.HasPrefix(trimmed, "["):
			currentTable = headerTablePath(trimmed)
			doc.rows = append(doc.rows, row{kind: rowHeader, raw: line, table: currentTable})
		default:
			eq := indexOutsideStrings(line, '=')
			if eq < 0 {
				doc.rows = append(doc.rows, row{kind: rowOther, raw: line, table: currentTable})
				continue
			}
			key := unquoteKey(strings.TrimSpace(line[:eq]))
			raw := line
			value := strings.TrimSpace(line[eq+1:])
			// Arrays and inline tables may continue on following lines.
			for bracketDepth(value) > 0 && i+1 < len(lines) {
				i++
				raw += "\n" + lines[i]
				value += "\n" + lines[i]
			}
			doc.rows = append(doc.rows, row{kind: rowEntry, raw: raw, table: currentTable, key: key, value: strings.TrimSpace(value)})
		}
	}

	return doc, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Bytes renders the document back to manifest text. An input that ended
// without a trailing newline renders without one.
func (d *Document) Bytes() []byte {
	var out strings.Builder
	for i, r := range d.rows {
		if i > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(r.raw)
	}
	if d.finalNewline {
		out.WriteByte('\n')
	}
	return []byte(out.String())
}

// Save writes the document back to the file it was loaded from. The write is
// confined to the manifest's own directory.
func (d *Document) Save() error {
	if d.path == "" {
		return errors.New("manifest has no backing path")
	}
	return safeio.WriteFile(d.path, d.Bytes(), 0o644)
}

// HasPackage reports whether the manifest declares a [package] table.
func (d *Document) HasPackage() bool {
	return d.hasTable("package")
}

// IsWorkspaceRoot reports whether the manifest declares a [workspace] table.
func (d *Document) IsWorkspaceRoot() bool {
	return d.hasTable("workspace")
}

// PackageName returns the declared package name, or "" when absent.
func (d *Document) PackageName() string {
	value, ok := d.Entry("package", "name")
	if !ok {
		return ""
	}
	name, _ := value.AsString()
	return name
}

// PackagePublish returns the package.publish flag, or nil when unset or not
// a plain boolean.
func (d *Document) PackagePublish() *bool {
	value, ok := d.Entry("package", "publish")
	if !ok {
		return nil
	}
	var decoded bool
	if err := value.decode(&decoded); err != nil {
		return nil
	}
	return &decoded
}

// DependencyTablePath is where runtime dependencies live: workspace roots
// manage shared entries under workspace.dependencies, every other manifest
// under dependencies.
func (d *Document) DependencyTablePath() string {
	if d.IsWorkspaceRoot() {
		return "workspace.dependencies"
	}
	return "dependencies"
}

// Keys lists the entry keys of tablePath, in declaration order. Sub-tables
// declared as their own sections, like [dependencies.serde], count as keys
// of the parent table.
func (d *Document) Keys(tablePath string) []string {
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, r := range d.rows {
		switch r.kind {
		case rowEntry:
			if r.table == tablePath {
				add(r.key)
			}
		case rowHeader:
			if parent, key, ok := splitChildTable(r.table, tablePath); ok && parent == tablePath {
				add(key)
			}
		}
	}
	return keys
}

// Entry returns the value of key in tablePath. A section-backed entry is
// assembled from the section's own rows.
func (d *Document) Entry(tablePath, key string) (Value, bool) {
	for _, r := range d.rows {
		if r.kind == rowEntry && r.table == tablePath && r.key == key {
			return Value{raw: r.value}, true
		}
	}
	childPath := tablePath + "." + key
	if !d.hasTable(childPath) {
		return Value{}, false
	}
	fields := make(map[string]string)
	for _, r := range d.rows {
		if r.kind == rowEntry && r.table == childPath {
			fields[r.key] = r.value
		}
	}
	return Value{fields: fields}, true
}

// SetString assigns a bare string value to key in tablePath, creating the
// table and the entry as needed. When the key lives in its own section the
// section's version field is updated in place so sibling fields survive.
func (d *Document) SetString(tablePath, key, value string) {
	d.setRaw(tablePath, key, fmt.Sprintf("%q", value))
}

// SetInlineTable assigns an inline-table value to key in tablePath. raw must
// be valid inline TOML, braces included.
func (d *Document) SetInlineTable(tablePath, key, raw string) {
	d.setRaw(tablePath, key, raw)
}

func (d *Document) setRaw(tablePath, key, rawValue string) {
	for i, r := range d.rows {
		if r.kind == rowEntry && r.table == tablePath && r.key == key {
			d.rows[i].raw = fmt.Sprintf("%s = %s", r.key, rawValue)
			d.rows[i].value = rawValue
			return
		}
	}
	childPath := tablePath + "." + key
	if d.hasTable(childPath) {
		d.setRawInTable(childPath, "version", rawValue)
		return
	}
	d.EnsureTable(tablePath)
	d.appendEntry(tablePath, row{
		kind:  rowEntry,
		raw:   fmt.Sprintf("%s = %s", key, rawValue),
		table: tablePath,
		key:   key,
		value: rawValue,
	})
}

func (d *Document) setRawInTable(tablePath, key, rawValue string) {
	for i, r := range d.rows {
		if r.kind == rowEntry && r.table == tablePath && r.key == key {
			d.rows[i].raw = fmt.Sprintf("%s = %s", key, rawValue)
			d.rows[i].value = rawValue
			return
		}
	}
	d.appendEntry(tablePath, row{
		kind:  rowEntry,
		raw:   fmt.Sprintf("%s = %s", key, rawValue),
		table: tablePath,
		key:   key,
		value: rawValue,
	})
}

// Remove deletes key from tablePath, section form included. It reports
// whether anything was removed.
func (d *Document) Remove(tablePath, key string) bool {
	removed := false
	kept := d.rows[:0]
	childPath := tablePath + "." + key
	for _, r := range d.rows {
		if r.kind == rowEntry && r.table == tablePath && r.key == key {
			removed = true
			continue
		}
		if r.table == childPath || strings.HasPrefix(r.table, childPath+".") {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	d.rows = kept
	return removed
}

// EnsureTable appends a [tablePath] header when the table does not exist.
func (d *Document) EnsureTable(tablePath string) {
	if d.hasTable(tablePath) {
		return
	}
	if len(d.rows) > 0 && d.rows[len(d.rows)-1].kind != rowBlank {
		d.rows = append(d.rows, row{kind: rowBlank})
	}
	d.rows = append(d.rows, row{kind: rowHeader, raw: fmt.Sprintf("[%s]", tablePath), table: tablePath})
}

func (d *Document) hasTable(tablePath string) bool {
	for _, r := range d.rows {
		if r.kind == rowHeader && r.table == tablePath {
			return true
		}
		if r.kind == rowEntry && r.table == tablePath {
			return true
		}
	}
	return false
}

// appendEntry inserts the row after the last line belonging to tablePath,
// skipping back over trailing blanks so new entries stay inside the table.
func (d *Document) appendEntry(tablePath string, entry row) {
	insertAt := -1
	for i, r := range d.rows {
		if r.table == tablePath && r.kind != rowBlank {
			insertAt = i + 1
		}
	}
	if insertAt < 0 {
		d.rows = append(d.rows, entry)
		return
	}
	d.rows = append(d.rows[:insertAt], append([]row{entry}, d.rows[insertAt:]...)...)
}

// headerTablePath extracts the dotted table path from a [header] line,
// unquoting quoted segments.
func headerTablePath(trimmed string) string {
	inner := strings.TrimSpace(trimmed)
	inner = strings.TrimPrefix(inner, "[")
	if idx := indexOutsideStrings(inner, ']'); idx >= 0 {
		inner = inner[:idx]
	}
	segments := splitDottedKey(strings.TrimSpace(inner))
	for i, segment := range segments {
		segments[i] = unquoteKey(segment)
	}
	return strings.Join(segments, ".")
}

// splitChildTable reports whether child is a direct sub-table of parent and
// returns the final segment as the key.
func splitChildTable(child, parent string) (string, string, bool) {
	if !strings.HasPrefix(child, parent+".") {
		return "", "", false
	}
	rest := child[len(parent)+1:]
	if rest == "" || strings.Contains(rest, ".") {
		return "", "", false
	}
	return parent, rest, true
}

func splitDottedKey(s string) []string {
	parts := make([]string, 0, 2)
	start := 0
	inString := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '.':
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}

func unquoteKey(key string) string {
	if len(key) >= 2 {
		if (key[0] == '"' && key[len(key)-1] == '"') || (key[0] == '\'' && key[len(key)-1] == '\'') {
			return key[1 : len(key)-1]
		}
	}
	return key
}

// indexOutsideStrings returns the first index of target in line that is not
// inside a quoted string, or -1.
func indexOutsideStrings(line string, target byte) int {
	inString := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString != 0 {
			if c == '\\' && inString == '"' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '#':
			return -1
		default:
			if c == target {
				return i
			}
		}
	}
	return -1
}

// bracketDepth counts unclosed [ and { pairs outside strings, so multi-line
// arrays and inline tables can be stitched back into one value.
func bracketDepth(value string) int {
	depth := 0
	inString := byte(0)
	for i := 0; i < len(value); i++ {
		c := value[i]
		if inString != 0 {
			if c == '\\' && inString == '"' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '#':
			for i < len(value) && value[i] != '\n' {
				i++
			}
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		}
	}
	return depth
}
