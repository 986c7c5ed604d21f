package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON turns a YAML config into JSON so both formats go through the
// same strict decoder. Non-YAML paths pass through untouched.
//
// An empty document decodes as {}. Numbers under duration keys become
// second counts ("timeout: 30" == "timeout: 30s").
func yamlToJSON(path string, data []byte) ([]byte, error) {
	if !isYAML(path) {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if v == nil {
		return []byte("{}"), nil
	}
	root, ok := normalizeYAML("", v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: top level must be a mapping, got %T", filepath.Base(path), v)
	}
	return json.Marshal(root)
}

// normalizeYAML stringifies map keys and rewrites numeric durations. key is
// the map key v was found under.
func normalizeYAML(key string, v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			ks := fmt.Sprint(k)
			m[ks] = normalizeYAML(ks, val)
		}
		return m
	case map[string]any:
		for k, val := range x {
			x[k] = normalizeYAML(k, val)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML("", x[i])
		}
		return x
	case int:
		if durationKeys[key] {
			return strconv.Itoa(x) + "s"
		}
	case float64:
		if durationKeys[key] {
			return strconv.FormatFloat(x, 'f', -1, 64) + "s"
		}
	}
	return v
}
