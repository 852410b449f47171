package store

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ExportJSON serializes the registry's current values as a JSON object
// keyed by store name. Values must be JSON-serializable.
func (r *Registry) ExportJSON() ([]byte, error) {
	data := []byte("{}")

	names := r.Names()
	for _, name := range names {
		s, err := r.Get(name)
		if err != nil {
			continue
		}
		data, err = sjson.SetBytes(data, escapeKey(name), s.Get())
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// ImportJSON applies a JSON object produced by ExportJSON (or a compatible
// persistence adapter). Unknown keys are ignored; the skipped keys are
// returned sorted.
func (r *Registry) ImportJSON(data []byte) ([]string, error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, ErrInvalidSnapshot
	}

	values := make(map[string]any)
	parsed.ForEach(func(key, value gjson.Result) bool {
		values[key.String()] = value.Value()
		return true
	})

	return r.Import(values), nil
}

// escapeKey protects store names containing sjson path syntax.
func escapeKey(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.', '*', '?', '|', '#', '@', ':', '\\':
			out = append(out, '\\')
		}
		out = append(out, name[i])
	}
	return string(out)
}
