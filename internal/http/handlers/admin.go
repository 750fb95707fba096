package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"backoffice/internal/attachments"
	"backoffice/internal/filter"
	"backoffice/internal/http/middleware"
	"backoffice/internal/listing"
	"backoffice/internal/paging"

	"github.com/gin-gonic/gin"
)

// MaxMultipartMemory bounds the form part kept in memory; larger uploads
// spill to temp files.
const MaxMultipartMemory = 8 << 20

// Admin serves the generic entity endpoints under /api/admin/:entity.
type Admin struct {
	Service listing.Service
}

func (h Admin) service(c *gin.Context) listing.Service {
	actor := middleware.GetActor(c)
	return h.Service.WithRequest(actor.UserID, actor.RequestID)
}

// GET /api/admin/:entity?q=..&status=..&sort=-created_at&page=2
func (h Admin) List(c *gin.Context) {
	entity := c.Param("entity")
	def, err := h.Service.Registry.Definition(entity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	page, err := h.service(c).ListPage(c.Request.Context(), entity, filterRequest(def.Filters, c.Request.URL.Query()), paging.ParsePage(c.Query(filter.PageKey)))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/admin/:entity/:id
func (h Admin) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.service(c).Get(c.Request.Context(), c.Param("entity"), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// POST /api/admin/:entity (multipart form or JSON)
func (h Admin) Create(c *gin.Context) {
	in, closeFiles, ok := h.decodeInput(c)
	if !ok {
		return
	}
	defer closeFiles()
	res, err := h.service(c).Add(c.Request.Context(), c.Param("entity"), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// PUT /api/admin/:entity/:id
func (h Admin) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, closeFiles, ok := h.decodeInput(c)
	if !ok {
		return
	}
	defer closeFiles()
	res, err := h.service(c).Edit(c.Request.Context(), c.Param("entity"), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /api/admin/:entity/:id
func (h Admin) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service(c).Delete(c.Request.Context(), c.Param("entity"), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type transitionPayload struct {
	Target string `json:"target" binding:"required"`
}

// POST /api/admin/:entity/:id/transition {"target":"shipped"}
func (h Admin) Transition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var p transitionPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	res, err := h.service(c).ApplyTransition(c.Request.Context(), c.Param("entity"), id,
		listing.ActionTransition, map[string]string{"target": p.Target})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/admin/:entity/:id/toggle/:flag
func (h Admin) Toggle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service(c).ApplyTransition(c.Request.Context(), c.Param("entity"), id,
		listing.ActionToggle, map[string]string{"flag": c.Param("flag")})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type inputPayload struct {
	Values map[string]any      `json:"values"`
	Flags  map[string]bool     `json:"flags"`
	Keep   map[string][]string `json:"keep"`
	Remove []string            `json:"remove"`
}

// decodeInput reads a JSON body or a multipart form. In a form, flag fields
// are recognised by name, "keep_<slot>" lists the gallery names to keep and
// "remove" names single slots to clear; file parts are keyed by slot.
func (h Admin) decodeInput(c *gin.Context) (listing.Input, func(), bool) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var p inputPayload
		if !BindJSONOrError(c, &p) {
			return listing.Input{}, noop, false
		}
		in := listing.Input{Values: map[string]string{}, Flags: p.Flags, Keep: p.Keep, Remove: p.Remove}
		for k, v := range p.Values {
			in.Values[k] = jsonScalar(v)
		}
		return in, noop, true
	}

	def, err := h.Service.Registry.Definition(c.Param("entity"))
	if err != nil {
		RespondDomainError(c, err)
		return listing.Input{}, noop, false
	}
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid multipart form", err.Error())
		return listing.Input{}, noop, false
	}

	in := listing.Input{
		Values:  map[string]string{},
		Flags:   map[string]bool{},
		Files:   map[string]*attachments.Upload{},
		Gallery: map[string][]attachments.Upload{},
		Keep:    map[string][]string{},
	}
	for k, vs := range form.Value {
		switch {
		case k == "remove":
			in.Remove = append(in.Remove, vs...)
		case strings.HasPrefix(k, "keep_"):
			in.Keep[strings.TrimPrefix(k, "keep_")] = vs
		case def.Flags != nil && def.Flags.Has(k):
			on, _ := strconv.ParseBool(strings.TrimSpace(vs[len(vs)-1]))
			in.Flags[k] = on || vs[len(vs)-1] == "on"
		default:
			in.Values[k] = vs[len(vs)-1]
		}
	}

	var opened []io.Closer
	closeFiles := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	open := func(fh *multipart.FileHeader) (attachments.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return attachments.Upload{}, err
		}
		opened = append(opened, f)
		return attachments.Upload{Filename: fh.Filename, Size: fh.Size, Body: f}, nil
	}
	for slot, headers := range form.File {
		multi := false
		for _, s := range def.Slots {
			if s.Name == slot {
				multi = s.Multi
			}
		}
		for _, fh := range headers {
			up, err := open(fh)
			if err != nil {
				closeFiles()
				respondError(c, http.StatusBadRequest, "validation_error", "unreadable upload "+slot, nil)
				return listing.Input{}, noop, false
			}
			if multi {
				in.Gallery[slot] = append(in.Gallery[slot], up)
			} else {
				in.Files[slot] = &up
			}
		}
	}
	return in, closeFiles, true
}

// filterRequest flattens query values. Repeated keys of a set-membership
// filter are merged (?status=a&status=b); any other key keeps its last value.
func filterRequest(spec *filter.Spec, query url.Values) filter.Request {
	req := filter.Request{}
	for k, v := range query {
		if k == filter.PageKey || len(v) == 0 {
			continue
		}
		if f, ok := spec.Field(k); ok && f.Kind == filter.SetMembership {
			req[k] = strings.Join(v, ",")
			continue
		}
		req[k] = v[len(v)-1]
	}
	return req
}

func jsonScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
