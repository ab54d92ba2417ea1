package proxy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

func toBoolean(intf any) (result bool, ok bool) {
	if intf == nil {
		return
	}
	var supportedValue any
	switch fv := intf.(type) {
	case bool, string:
		supportedValue = fv
	case []any:
		if len(fv) > 0 {
			switch fv[0].(type) {
			case bool, string:
				supportedValue = fv[0]
			}
		}
	}
	if supportedValue != nil {
		switch fv := supportedValue.(type) {
		case bool:
			result = fv
			ok = true
		case string:
			switch strings.ToLower(fv) {
			case "1", "true", "ok", "yes":
				result = true
				ok = true
			case "0", "false", "no":
				result = false
				ok = true
			}
		}
	}
	return
}

func toString(intf any) (result string, ok bool) {
	if intf == nil {
		return
	}
	result, ok = intf.(string)
	return
}

func toInt64(intf any) (result int64, ok bool) {
	if intf == nil {
		return
	}
	ok = true
	switch iv := intf.(type) {
	case int:
		result = int64(iv)
	case int32:
		result = int64(iv)
	case int64:
		result = iv
	case float32:
		result = int64(iv)
	case float64:
		result = int64(iv)
	case json.Number:
		var er1 error
		if result, er1 = iv.Int64(); er1 != nil {
			ok = false
		}
	case string:
		if irv, err := strconv.Atoi(iv); err == nil {
			result = int64(irv)
		} else {
			ok = false
		}
	default:
		ok = false
	}
	return
}

func toStringSlice(intf any) (result []string) {
	switch v := intf.(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				result = append(result, s)
			}
		}
	case []string:
		result = append(result, v...)
	case string:
		if len(v) > 0 {
			result = append(result, v)
		}
	}
	return
}

// firstString returns the first non-empty string value among keys.
func firstString(object map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := toString(object[key]); ok && len(s) > 0 {
			return s
		}
	}
	return ""
}

// FormatValue renders a JSON value for a single tab separated or CSV cell.
func FormatValue(intf any) string {
	switch v := intf.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(intf)
}

// NormalizeTeams collapses any run of whitespace in a team list to a single space.
func NormalizeTeams(teams string) string {
	return strings.Join(strings.Fields(teams), " ")
}

// SplitTeams returns the team names of a space separated list with duplicates removed.
func SplitTeams(teams string) (result []string) {
	var seen = NewSet[string]()
	for _, name := range strings.Fields(teams) {
		if seen.Has(name) {
			continue
		}
		seen.Add(name)
		result = append(result, name)
	}
	return
}

// ContainsFold reports whether substr is within s under Unicode case folding.
func ContainsFold(s string, substr string) bool {
	var folder = cases.Fold()
	return strings.Contains(folder.String(s), folder.String(substr))
}

type Set[K comparable] map[K]struct{}

func NewSet[K comparable]() Set[K] {
	return make(Set[K])
}
func MakeSet[K comparable](keys []K) Set[K] {
	var ns = NewSet[K]()
	for _, k := range keys {
		ns.Add(k)
	}
	return ns
}
func (s Set[K]) Has(key K) (ok bool) {
	_, ok = s[key]
	return
}
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}
func (s Set[K]) Delete(key K) {
	delete(s, key)
}
func (s Set[K]) ToArray() (result []K) {
	for k := range s {
		result = append(result, k)
	}
	return
}
func (s Set[K]) Copy() Set[K] {
	var ns = NewSet[K]()
	for k := range s {
		ns.Add(k)
	}
	return ns
}
func (s Set[K]) EqualTo(other Set[K]) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}
