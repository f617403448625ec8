package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/unbound-force/krypton/internal/grade"
	"gopkg.in/yaml.v3"
)

// source supplies raw values by canonical key. Values are strings,
// or []string for list fields given as separate arguments.
type source interface {
	name() string
	lookup(key string) (any, bool)
}

// field describes one mergeable configuration value: how to decode a
// raw value and where to store it.
type field struct {
	key    string
	decode func(key string, raw any) (any, error)
	store  func(c *EffectiveConfig, v any)
}

// fields is processed in order for every source.
var fields = []field{
	{key: "max_absolute", decode: decodeGrade, store: func(c *EffectiveConfig, v any) {
		c.AbsoluteThreshold = grade.Ptr(v.(grade.Grade))
	}},
	{key: "max_modules", decode: decodeGrade, store: func(c *EffectiveConfig, v any) {
		c.ModuleThreshold = grade.Ptr(v.(grade.Grade))
	}},
	{key: "max_average", decode: decodeGrade, store: func(c *EffectiveConfig, v any) {
		c.AverageThreshold = grade.Ptr(v.(grade.Grade))
	}},
	{key: "max_average_num", decode: decodeFloat, store: func(c *EffectiveConfig, v any) {
		f := v.(float64)
		c.AverageNumThreshold = &f
	}},
	{key: "no_assert", decode: decodeBool, store: func(c *EffectiveConfig, v any) {
		c.NoAssert = v.(bool)
	}},
	{key: "path", decode: decodeList, store: func(c *EffectiveConfig, v any) {
		c.Paths = v.([]string)
	}},
	{key: "exclude", decode: decodeJoinedList, store: func(c *EffectiveConfig, v any) {
		c.Exclude = v.(string)
	}},
	{key: "ignore", decode: decodeJoinedList, store: func(c *EffectiveConfig, v any) {
		c.Ignore = v.(string)
	}},
	{key: "url", decode: decodeString, store: func(c *EffectiveConfig, v any) {
		c.URL = v.(string)
	}},
	{key: "config_file", decode: decodeString, store: func(c *EffectiveConfig, v any) {
		c.ConfigFile = v.(string)
	}},
	{key: "metrics_file", decode: decodeString, store: func(c *EffectiveConfig, v any) {
		c.MetricsFile = v.(string)
	}},
}

// defaultSource holds the built-in defaults.
type defaultSource map[string]any

func (defaultSource) name() string { return "default" }

func (d defaultSource) lookup(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

var defaults = defaultSource{
	"config_file": DefaultConfigFile,
	"no_assert":   "false",
	"path":        []string{DefaultPath},
}

// accumulator collects field values; a field, once set, is never
// overwritten by a later source.
type accumulator struct {
	cfg  EffectiveConfig
	from map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{from: make(map[string]string)}
}

func (a *accumulator) isSet(key string) bool {
	_, ok := a.from[key]
	return ok
}

func (a *accumulator) apply(f field, src source) error {
	if a.isSet(f.key) {
		return nil
	}
	raw, ok := src.lookup(f.key)
	if !ok {
		return nil
	}
	v, err := f.decode(f.key, raw)
	if err != nil {
		return err
	}
	f.store(&a.cfg, v)
	a.from[f.key] = src.name()
	return nil
}

// merge applies sources in the given order, highest precedence first.
func merge(sources ...source) (*accumulator, error) {
	acc := newAccumulator()
	for _, src := range sources {
		for _, f := range fields {
			if err := acc.apply(f, src); err != nil {
				return nil, err
			}
		}
	}
	return acc, nil
}

func rawString(key string, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", formatError(key, fmt.Sprintf("expected a single value, got %T", raw))
	}
	return grade.Unquote(strings.TrimSpace(s)), nil
}

func decodeGrade(key string, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, formatError(key, fmt.Sprintf("expected a grade, got %T", raw))
	}
	g, err := grade.Parse(s)
	if err != nil {
		return nil, formatError(key, err.Error())
	}
	return g, nil
}

func decodeFloat(key string, raw any) (any, error) {
	s, err := rawString(key, raw)
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, formatError(key, fmt.Sprintf("%q is not a number", s))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, formatError(key, fmt.Sprintf("%q is not a finite number", s))
	}
	return f, nil
}

func decodeBool(key string, raw any) (any, error) {
	s, err := rawString(key, raw)
	if err != nil {
		return nil, err
	}
	b, ok := booleans[strings.ToLower(s)]
	if !ok {
		return nil, formatError(key, fmt.Sprintf("%q is not a boolean", s))
	}
	return b, nil
}

// booleans lists the accepted spellings of a boolean value.
var booleans = map[string]bool{
	"1": true, "yes": true, "true": true, "on": true,
	"0": false, "no": false, "false": false, "off": false,
}

func decodeString(key string, raw any) (any, error) {
	return rawString(key, raw)
}

// decodeList accepts a []string, a single string (promoted to one
// element) or a flow-sequence literal such as ["a", 'b'] whose
// elements must all be strings. Mappings and non-string scalars such
// as 5 or true are rejected.
func decodeList(key string, raw any) (any, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case string:
		s := strings.TrimSpace(v)
		if !strings.HasPrefix(s, "[") {
			if !isStringScalar(s) {
				return nil, formatError(key, fmt.Sprintf("%s is not a string or a list of strings", s))
			}
			return []string{grade.Unquote(s)}, nil
		}
		var items []any
		if err := yaml.Unmarshal([]byte(s), &items); err != nil {
			return nil, formatError(key, fmt.Sprintf("%s is not a list of strings", s))
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			str, ok := item.(string)
			if !ok {
				return nil, formatError(key, fmt.Sprintf("%s is not a list of strings", s))
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, formatError(key, fmt.Sprintf("expected a string or a list of strings, got %T", raw))
	}
}

// isStringScalar reports whether s reads as a single string. Values
// that are not valid YAML, such as the glob *_test.go, are taken
// literally.
func isStringScalar(s string) bool {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil || len(doc.Content) == 0 {
		return true
	}
	n := doc.Content[0]
	if n.Kind != yaml.ScalarNode {
		return false
	}
	switch n.ShortTag() {
	case "!!bool", "!!int", "!!float", "!!null":
		return false
	}
	return true
}

// decodeJoinedList is decodeList joined into one comma-separated
// pattern list.
func decodeJoinedList(key string, raw any) (any, error) {
	v, err := decodeList(key, raw)
	if err != nil {
		return nil, err
	}
	return strings.Join(v.([]string), ","), nil
}
