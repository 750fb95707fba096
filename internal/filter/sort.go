package filter

import "strings"

func (s *Spec) sortColumn(key string) (string, bool) {
	for _, so := range s.sorts {
		if so.Key == key {
			return so.Column, true
		}
	}
	return "", false
}

// OrderBy renders the ORDER BY clause for the requested sort, falling back to
// the declared default and finally to "id DESC". Unknown keys are ignored.
func (s *Spec) OrderBy(req Request) string {
	if clause, ok := s.orderFor(req.Get(SortKey)); ok {
		return clause
	}
	if clause, ok := s.orderFor(s.defaultSort); ok {
		return clause
	}
	return " ORDER BY id DESC"
}

func (s *Spec) orderFor(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	dir := "ASC"
	key := raw
	if strings.HasPrefix(raw, "-") {
		dir = "DESC"
		key = raw[1:]
	}
	col, ok := s.sortColumn(key)
	if !ok {
		return "", false
	}
	if col == "id" {
		return " ORDER BY id " + dir, true
	}
	// id breaks ties so paging is stable
	return " ORDER BY " + col + " " + dir + ", id " + dir, true
}
