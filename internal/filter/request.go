package filter

import (
	"strconv"
	"strings"

	"backoffice/internal/utils"
)

const (
	// SortKey carries the requested order ("-created_at").
	SortKey = "sort"
	// PageKey carries the requested page number.
	PageKey = "page"

	// Range fields read their bounds from "<key>_from" and "<key>_to".
	RangeFromSuffix = "_from"
	RangeToSuffix   = "_to"
)

// Request maps filter keys to raw request values. Absent or empty values
// mean "no constraint".
type Request map[string]string

// Get returns the trimmed value for key.
func (r Request) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Without returns a copy of r with every key belonging to field removed.
func (r Request) Without(f FilterField) Request {
	out := make(Request, len(r))
	for k, v := range r {
		if k == f.Key || (f.Kind == Range && (k == f.Key+RangeFromSuffix || k == f.Key+RangeToSuffix)) {
			continue
		}
		out[k] = v
	}
	return out
}

// With returns a copy of r with key set to value.
func (r Request) With(key, value string) Request {
	out := make(Request, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// value is a coerced, validated filter value ready for binding.
type value struct {
	scalar any
	list   []any
	from   any
	to     any
}

// coerce validates raw request input for f. ok is false when the field
// carries no usable constraint; malformed input degrades to "no filter".
func coerce(f FilterField, r Request) (value, bool) {
	switch f.Kind {
	case Range:
		from, okFrom := coerceScalar(f, r.Get(f.Key+RangeFromSuffix))
		to, okTo := coerceScalar(f, r.Get(f.Key+RangeToSuffix))
		if f.Type == Date && okTo {
			// inclusive upper bound covers the whole day
			to = strings.Replace(to.(string), "00:00:00", "23:59:59", 1)
		}
		if !okFrom && !okTo {
			return value{}, false
		}
		v := value{}
		if okFrom {
			v.from = from
		}
		if okTo {
			v.to = to
		}
		return v, true
	case SetMembership:
		raw := r.Get(f.Key)
		if raw == "" {
			return value{}, false
		}
		seen := map[string]bool{}
		var list []any
		for _, part := range utils.SplitList(raw) {
			if seen[part] {
				continue
			}
			if c, ok := coerceScalar(f, part); ok {
				seen[part] = true
				list = append(list, c)
			}
		}
		if len(list) == 0 {
			return value{}, false
		}
		return value{list: list}, true
	case Substring:
		raw := r.Get(f.Key)
		if raw == "" {
			return value{}, false
		}
		return value{scalar: "%" + EscapeLike(utils.NormalizeSpace(raw)) + "%"}, true
	default:
		c, ok := coerceScalar(f, r.Get(f.Key))
		if !ok {
			return value{}, false
		}
		return value{scalar: c}, true
	}
}

func coerceScalar(f FilterField, raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	if len(f.AllowedValues) > 0 {
		matched := ""
		for _, a := range f.AllowedValues {
			if strings.EqualFold(a, raw) {
				matched = a
				break
			}
		}
		if matched == "" {
			return nil, false
		}
		raw = matched
	}
	switch f.Type {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case Float:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case Bool:
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on", "active":
			return 1, true
		case "0", "false", "no", "off", "inactive":
			return 0, true
		}
		return nil, false
	case Date:
		t, err := utils.ParseDate(raw)
		if err != nil {
			return nil, false
		}
		return utils.FormatDateTime(t), true
	default:
		return raw, true
	}
}

// EscapeLike escapes LIKE wildcards and the escape character itself.
// Patterns built from it must use ESCAPE '!'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
