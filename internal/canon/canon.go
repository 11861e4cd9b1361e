// Package canon builds the labeled text descriptions that get embedded for
// tasks, workers and ad-hoc queries.
package canon

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EntityType names the kind of source record a description is built from.
type EntityType string

const (
	Task EntityType = "task"
	User EntityType = "user"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == Task || t == User
}

// ParseEntityType accepts "task"/"tasks" and "user"/"users".
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "task", "tasks":
		return Task, nil
	case "user", "users", "worker", "workers":
		return User, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

const (
	// Separator joins labeled segments.
	Separator = " | "
	// ListDelimiter joins the items of a list-valued field.
	ListDelimiter = ", "
)

// Field is one labeled slot of a template.
type Field struct {
	Key   string
	Label string
}

// Template is the fixed field order for an entity type.
type Template []Field

var (
	TaskTemplate = Template{
		{Key: "title", Label: "Title"},
		{Key: "description", Label: "Description"},
		{Key: "trade_category", Label: "Trade Category"},
		{Key: "skill_requirements", Label: "Skill Requirements"},
		{Key: "priority", Label: "Priority"},
		{Key: "status", Label: "Status"},
		{Key: "location", Label: "Location"},
	}

	UserTemplate = Template{
		{Key: "name", Label: "Name"},
		{Key: "role", Label: "Role"},
		{Key: "primary_skills", Label: "Primary Skills"},
		{Key: "trade_categories", Label: "Trade Categories"},
		{Key: "experience_years", Label: "Experience Years"},
		{Key: "certifications", Label: "Certifications"},
		{Key: "bio", Label: "Bio"},
	}
)

// TemplateFor returns the template for t.
func TemplateFor(t EntityType) (Template, error) {
	switch t {
	case Task:
		return TaskTemplate, nil
	case User:
		return UserTemplate, nil
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// BuildText renders fields with the template for t. Keys not in the template
// are ignored; empty values are skipped.
func BuildText(t EntityType, fields Fields) (string, error) {
	tmpl, err := TemplateFor(t)
	if err != nil {
		return "", err
	}
	return tmpl.Render(fields), nil
}

// Render concatenates the non-empty fields in template order.
func (tmpl Template) Render(fields Fields) string {
	segments := make([]string, 0, len(tmpl))
	for _, f := range tmpl {
		v, ok := formatValue(fields[f.Key])
		if !ok {
			continue
		}
		segments = append(segments, f.Label+": "+v)
	}
	return strings.Join(segments, Separator)
}

// NormalizeQuery trims and collapses whitespace in free-form query text.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func formatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case []string:
		return joinList(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := formatValue(item); ok {
				items = append(items, s)
			}
		}
		return joinList(items)
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", false
		}
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		return formatValue(val.String())
	default:
		return formatValue(fmt.Sprint(val))
	}
}

func joinList(items []string) (string, bool) {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, ListDelimiter), true
}

// Fields is a source row as a field map. Values may come from typed structs
// or decoded JSON, so the getters accept both shapes.
type Fields map[string]any

// String returns the trimmed string at key, or "".
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		s, _ := formatValue(v)
		return s
	}
}

// Strings returns the list at key. A JSON-encoded array string is decoded.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := formatValue(item); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		var list []string
		if strings.HasPrefix(s, "[") && json.Unmarshal([]byte(s), &list) == nil {
			return Fields{key: list}.Strings(key)
		}
		return []string{s}
	}
	return nil
}

// Int returns the integer at key and whether one was present.
func (f Fields) Int(key string) (int, bool) {
	switch v := f[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
