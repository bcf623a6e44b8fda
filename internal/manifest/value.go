package manifest

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

// Value is one dependency entry's right-hand side. Inline entries carry
// their raw TOML text; section-backed entries carry a field map instead.
type Value struct {
	raw    string
	fields map[string]string
}

// Raw returns the inline TOML text, or "" for a section-backed value.
func (v Value) Raw() string {
	return v.raw
}

// decode parses the raw value into out by wrapping it in a one-key
// document, so the full TOML grammar applies to the value text.
func (v Value) decode(out any) error {
	doc := "v = " + v.raw
	wrapper := struct {
		V any `toml:"v"`
	}{}
	if err := toml.Unmarshal([]byte(doc), &wrapper); err != nil {
		return err
	}
	return assign(wrapper.V, out)
}

func assign(decoded any, out any) error {
	switch target := out.(type) {
	case *any:
		*target = decoded
	case *string:
		s, ok := decoded.(string)
		if !ok {
			return fmt.Errorf("value is %T, not string", decoded)
		}
		*target = s
	case *bool:
		b, ok := decoded.(bool)
		if !ok {
			return fmt.Errorf("value is %T, not bool", decoded)
		}
		*target = b
	case *map[string]any:
		m, ok := decoded.(map[string]any)
		if !ok {
			return fmt.Errorf("value is %T, not table", decoded)
		}
		*target = m
	default:
		return fmt.Errorf("unsupported decode target %T", out)
	}
	return nil
}

// AsString returns the value as a plain string, reporting false for tables,
// arrays, and other shapes.
func (v Value) AsString() (string, bool) {
	if v.fields != nil {
		return "", false
	}
	var s string
	if err := v.decode(&s); err != nil {
		return "", false
	}
	return s, true
}

// AsTable returns the value as a key/value map. Inline tables decode
// directly; section-backed values decode field by field.
func (v Value) AsTable() (map[string]any, bool) {
	if v.fields != nil {
		table := make(map[string]any, len(v.fields))
		for key, raw := range v.fields {
			var decoded any
			if err := (Value{raw: raw}).decode(&decoded); err != nil {
				return nil, false
			}
			table[key] = decoded
		}
		return table, true
	}
	var table map[string]any
	if err := v.decode(&table); err != nil {
		return nil, false
	}
	return table, true
}

// PathField returns the path field of a table-shaped value, reporting false
// when the value is not a table or has no string path.
func (v Value) PathField() (string, bool) {
	table, ok := v.AsTable()
	if !ok {
		return "", false
	}
	path, ok := table["path"].(string)
	return path, ok
}

// VersionRequirement returns the declared version text: the value itself for
// string-shaped entries, the version field for table-shaped ones.
func (v Value) VersionRequirement() (string, bool) {
	if s, ok := v.AsString(); ok {
		return s, true
	}
	table, ok := v.AsTable()
	if !ok {
		return "", false
	}
	version, ok := table["version"].(string)
	return version, ok
}
