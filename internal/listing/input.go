package listing

import (
	"fmt"
	"strconv"
	"strings"

	"backoffice/internal/attachments"
	"backoffice/internal/domain"
	"backoffice/internal/filter"
	"backoffice/internal/utils"
)

// Input is a decoded Add/Edit form.
type Input struct {
	// Values holds raw field values keyed by FieldDef.Key. A key that is
	// absent leaves the column unchanged on Edit.
	Values map[string]string
	// Flags holds explicit flag values ("is_active": true).
	Flags map[string]bool
	// Files holds new uploads for single slots. A missing slot keeps the
	// current file.
	Files map[string]*attachments.Upload
	// Gallery holds new uploads for multi slots and Keep the previously
	// stored names that remain. A multi slot absent from both is untouched.
	Gallery map[string][]attachments.Upload
	Keep    map[string][]string
	// Remove lists single slots to clear.
	Remove []string
}

type assignment struct {
	column string
	value  any
}

// validate coerces Values against the write schema. On Add every required
// field must be present.
func (d *Definition) validate(in Input, creating bool) ([]assignment, map[string]any, error) {
	for key := range in.Values {
		if _, ok := d.Field(key); !ok {
			return nil, nil, domain.ValidationError{Field: key, Msg: "unknown field"}
		}
	}
	var (
		out     []assignment
		changes = map[string]any{}
	)
	for _, f := range d.Fields {
		raw, present := in.Values[f.Key]
		raw = strings.TrimSpace(raw)
		if !present {
			if creating && f.Required {
				return nil, nil, domain.ValidationError{Field: f.Key, Msg: "is required"}
			}
			continue
		}
		if raw == "" {
			if f.Required {
				return nil, nil, domain.ValidationError{Field: f.Key, Msg: "is required"}
			}
			out = append(out, assignment{column: f.Column, value: nil})
			changes[f.Key] = nil
			continue
		}
		v, err := coerceField(f, raw)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, assignment{column: f.Column, value: v})
		changes[f.Key] = v
	}
	return out, changes, nil
}

func coerceField(f FieldDef, raw string) (any, error) {
	if f.MaxLen > 0 && len([]rune(raw)) > f.MaxLen {
		return nil, domain.ValidationError{Field: f.Key, Msg: fmt.Sprintf("must be at most %d characters", f.MaxLen)}
	}
	if len(f.AllowedValues) > 0 {
		for _, a := range f.AllowedValues {
			if strings.EqualFold(a, raw) {
				return a, nil
			}
		}
		return nil, domain.ValidationError{Field: f.Key, Msg: fmt.Sprintf("must be one of %s", strings.Join(f.AllowedValues, ", "))}
	}
	switch f.Type {
	case filter.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.ValidationError{Field: f.Key, Msg: "must be a whole number", Err: err}
		}
		return n, nil
	case filter.Float:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domain.ValidationError{Field: f.Key, Msg: "must be a number", Err: err}
		}
		return n, nil
	case filter.Bool:
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			return 1, nil
		case "0", "false", "no", "off":
			return 0, nil
		}
		return nil, domain.ValidationError{Field: f.Key, Msg: "must be true or false"}
	case filter.Date:
		t, err := utils.ParseDateInput(raw)
		if err != nil {
			return nil, domain.ValidationError{Field: f.Key, Msg: "must be a date (YYYY-MM-DD)"}
		}
		return utils.FormatDateTime(t), nil
	default:
		return raw, nil
	}
}
