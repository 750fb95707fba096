// Package listing composes filtering, paging, facet counts, lifecycle rules
// and attachments into the operations an admin page needs.
package listing

import (
	"backoffice/internal/attachments"
	"backoffice/internal/filter"
	"backoffice/internal/lifecycle"
)

// FieldDef declares a column writable through Add/Edit.
type FieldDef struct {
	Key           string
	Column        string
	Type          filter.ValueType
	Required      bool
	AllowedValues []string
	MaxLen        int
}

// ChildSpec declares child rows fetched in one batch per page, keyed by the
// page's ids (order line items).
type ChildSpec struct {
	Key        string
	Table      string
	ForeignKey string
	Columns    []string
}

// Definition describes one entity type of the back office.
type Definition struct {
	// Name is the entity type used in routes and audit events ("orders").
	Name string
	// Title is the singular noun used in messages ("order").
	Title    string
	Table    string
	PageSize int
	// Columns is the select list of listing rows; "id" is always included.
	Columns       []string
	Filters       *filter.Spec
	Facets        []string
	Fields        []FieldDef
	Workflow      *lifecycle.Workflow
	Flags         *lifecycle.FlagSet
	Slots         []attachments.Slot
	Children      []ChildSpec
	Labels        map[string]map[string]string
	CreatedColumn string
	UpdatedColumn string
	// ReadOnly entities reject Add/Edit/Delete; transitions still apply.
	ReadOnly bool
}

// Field looks up a writable field by key.
func (d *Definition) Field(key string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Label returns the display label for a column value, or the value itself.
func (d *Definition) Label(column, value string) string {
	if l, ok := d.Labels[column][value]; ok {
		return l
	}
	return value
}

func (d *Definition) title() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

func (d *Definition) machine() lifecycle.Machine {
	return lifecycle.Machine{
		Entity:      d.title(),
		Table:       d.Table,
		Workflow:    d.Workflow,
		Flags:       d.Flags,
		TouchColumn: d.UpdatedColumn,
	}
}
