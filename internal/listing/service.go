package listing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"backoffice/internal/audit"
	"backoffice/internal/domain"
	"backoffice/internal/facets"
	"backoffice/internal/filter"
	"backoffice/internal/paging"
	"backoffice/internal/utils"
)

// Service runs listing reads and entity mutations for every registered
// entity type. It is a value type; copy it per request with WithRequest.
type Service struct {
	DB        *sql.DB
	Registry  *Registry
	Audit     audit.Sink
	RequestID string
	Actor     domain.ID
}

// WithRequest returns a copy bound to the acting admin and request id.
func (s Service) WithRequest(actor domain.ID, requestID string) Service {
	s.Actor = actor
	s.RequestID = requestID
	return s
}

// Page is what a listing view renders.
type Page struct {
	Entity     string                       `json:"entity"`
	Rows       []Row                        `json:"rows"`
	Pagination domain.Pagination            `json:"pagination"`
	Facets     map[string]facets.Facet      `json:"facets"`
	Labels     map[string]map[string]string `json:"labels,omitempty"`
}

// ListPage validates req, counts matches, fetches the requested page and
// computes every declared facet under the other active filters.
func (s Service) ListPage(ctx context.Context, entity string, req filter.Request, page int) (Page, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return Page{}, err
	}
	pred, err := filter.Compile(d.Filters, req)
	if err != nil {
		return Page{}, err
	}

	counter := facets.Counter{DB: s.DB}
	total, err := counter.Count(ctx, d.Filters, pred)
	if err != nil {
		return Page{}, s.internal("list", err)
	}
	win := paging.Paginate(total, page, d.PageSize)

	query := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT ? OFFSET ?",
		strings.Join(d.Columns, ", "), d.Table, pred.Where(), d.Filters.OrderBy(req))
	args := append(pred.Args(), win.Limit, win.Offset)
	res, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, s.internal("list", err)
	}
	rows, err := scanRows(res)
	res.Close()
	if err != nil {
		return Page{}, s.internal("list", err)
	}
	if err := fetchChildren(ctx, s.DB, d, rows); err != nil {
		return Page{}, s.internal("list", err)
	}
	applyLabels(d, rows)

	out := Page{
		Entity:     d.Name,
		Rows:       rows,
		Pagination: win.Pagination(),
		Facets:     make(map[string]facets.Facet, len(d.Facets)),
		Labels:     d.Labels,
	}
	for _, key := range d.Facets {
		dim, _ := d.Filters.Field(key)
		f, err := counter.ComputeFacets(ctx, d.Filters, req, dim)
		if err != nil {
			return Page{}, s.internal("facets", err)
		}
		out.Facets[key] = f
	}
	return out, nil
}

// Get loads one row with its children and labels.
func (s Service) Get(ctx context.Context, entity string, id domain.ID) (Row, error) {
	d, err := s.Registry.Definition(entity)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", strings.Join(d.Columns, ", "), d.Table)
	res, err := s.DB.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, s.internal("get", err)
	}
	rows, err := scanRows(res)
	res.Close()
	if err != nil {
		return nil, s.internal("get", err)
	}
	if len(rows) == 0 {
		return nil, domain.NotFoundError{Resource: d.title()}
	}
	if err := fetchChildren(ctx, s.DB, d, rows); err != nil {
		return nil, s.internal("get", err)
	}
	applyLabels(d, rows)
	return rows[0], nil
}

// internal logs store failures with full detail and hides them behind a
// generic InternalError. Domain errors pass through unchanged.
func (s Service) internal(action string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindInternal || domain.IsInternal(err) {
		return err
	}
	utils.LogEvent(s.RequestID, "listing", action, err.Error())
	return domain.InternalError{Msg: "something went wrong, please retry", Err: err}
}
