package resource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FromAPI converts an API record into a Resource. Scalar fields become
// attributes under their JSON names; fields without a json tag (Go field
// names such as ID or TenantID) are stored in snake_case, and a tagged
// field wins over an untagged one of the same name. "id", "name" and
// "status" are lifted into the typed fields as well.
func FromAPI(kind string, record any) (Resource, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return Resource{}, fmt.Errorf("encode %s record: %w", kind, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return Resource{}, fmt.Errorf("decode %s record: %w", kind, err)
	}

	r := Resource{
		Kind:  kind,
		Attrs: make(map[string]string, len(fields)),
	}
	untagged := make(map[string]string)
	for k, v := range fields {
		s, ok := scalar(v)
		if !ok {
			continue
		}
		if snake := snakeCase(k); snake != k {
			untagged[snake] = s
			continue
		}
		r.Attrs[k] = s
	}
	for k, s := range untagged {
		if _, ok := r.Attrs[k]; !ok {
			r.Attrs[k] = s
		}
	}

	r.ID = r.Attrs["id"]
	r.Name = r.Attrs["name"]
	r.Status = r.Attrs["status"]

	if r.ID == "" {
		return Resource{}, fmt.Errorf("%s record has no id", kind)
	}
	return r, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// snakeCase maps a Go field name to its API spelling: ID → id,
// TenantID → tenant_id, CreatedAt → created_at. Keys that are not Go
// identifiers starting with an uppercase letter, such as "router:external"
// or "OS-EXT-STS:vm_state", are returned unchanged.
func snakeCase(name string) string {
	runes := []rune(name)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return name
	}
	for _, c := range runes {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return name
		}
	}

	var b strings.Builder
	for i, c := range runes {
		if unicode.IsUpper(c) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}
