// Package severity turns the many ways a level list can be written in the
// config file into one canonical lookup table.
package severity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smazurov/logd/internal/config"
)

// DefaultLevels are enabled when no level list is configured.
var DefaultLevels = []string{"debug", "info", "warn", "error", "fatal"}

// Table is the set of enabled level names, lowercased.
type Table map[string]bool

// Default returns a table enabling every default level.
func Default() Table {
	t := make(Table, len(DefaultLevels))
	for _, l := range DefaultLevels {
		t[l] = true
	}
	return t
}

// Normalize converts a level spec into a Table.
//
// Accepted shapes:
//   - nil, false or a blank string: every default level
//   - true: every default level
//   - "warn,error": one key per comma separated token
//   - []string / []any: one key per element's string form
//   - Table, map[string]bool, map[string]any with bool values: passed through
//   - a single number: one key, its decimal form
//
// Anything else yields a ConfigError.
func Normalize(spec any) (Table, error) {
	switch v := spec.(type) {
	case nil:
		return Default(), nil
	case bool:
		// Only "unset" is meaningful for booleans.
		return Default(), nil
	case Table:
		return v, nil
	case map[string]bool:
		return fromMap(v), nil
	case map[string]any:
		out := make(map[string]bool, len(v))
		for k, raw := range v {
			b, ok := raw.(bool)
			if !ok {
				return nil, invalid(spec, fmt.Sprintf("level %q must map to a boolean", k))
			}
			out[k] = b
		}
		return fromMap(out), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return Default(), nil
		}
		return fromTokens(strings.Split(v, ","))
	case []string:
		return fromTokens(v)
	case []any:
		tokens := make([]string, len(v))
		for i, item := range v {
			switch item.(type) {
			case string, int, int64, uint, uint64, float64:
				tokens[i] = fmt.Sprint(item)
			default:
				return nil, invalid(spec, fmt.Sprintf("unsupported level %v", item))
			}
		}
		return fromTokens(tokens)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Table{fmt.Sprint(v): true}, nil
	default:
		return nil, invalid(spec, fmt.Sprintf("unsupported level spec of type %T", spec))
	}
}

// Enabled reports whether level is routed.
func (t Table) Enabled(level string) bool {
	return t[strings.ToLower(strings.TrimSpace(level))]
}

// Levels returns the enabled level names, sorted.
func (t Table) Levels() []string {
	out := make([]string, 0, len(t))
	for k, on := range t {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func fromTokens(tokens []string) (Table, error) {
	t := make(Table, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		t[tok] = true
	}
	if len(t) == 0 {
		return nil, invalid(tokens, "no level names")
	}
	return t, nil
}

func fromMap(m map[string]bool) Table {
	t := make(Table, len(m))
	for k, on := range m {
		t[strings.ToLower(strings.TrimSpace(k))] = on
	}
	return t
}

func invalid(spec any, reason string) error {
	return config.NewConfigError(config.ErrCodeInvalidLevels, fmt.Sprintf("invalid levels %v: %s", spec, reason), nil)
}
