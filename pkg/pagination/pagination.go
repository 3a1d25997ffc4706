package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts pagination parameters from the echo context.
// Accepts page / page_size query parameters, defaulting to page 1 with
// DefaultPageSize records and capping page_size at MaxPageSize.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Limit returns the SQL LIMIT value.
func (p Params) Limit() int { return p.PageSize }

// Offset returns the SQL OFFSET value.
func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// Meta describes one page of a larger result set.
type Meta struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
}

// NewMeta builds pagination metadata for a result set of total records.
// An empty result set still reports one (empty) page.
func NewMeta(p Params, total int) Meta {
	pages := (total + p.PageSize - 1) / p.PageSize
	if pages < 1 {
		pages = 1
	}
	return Meta{
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalPages:   pages,
		TotalRecords: total,
	}
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Pagination Meta        `json:"pagination"`
}

// NewResponse builds the standard paginated envelope.
func NewResponse(data interface{}, p Params, total int) *Response {
	return &Response{Data: data, Pagination: NewMeta(p, total)}
}

// NewKeyedResponse builds a paginated envelope whose collection and total
// carry domain names, e.g. key "patients" yields
// {patients, pagination:{page, page_size, total_pages, total_patients}}.
func NewKeyedResponse(key string, data interface{}, p Params, total int) map[string]interface{} {
	m := NewMeta(p, total)
	return map[string]interface{}{
		key: data,
		"pagination": map[string]interface{}{
			"page":         m.Page,
			"page_size":    m.PageSize,
			"total_pages":  m.TotalPages,
			"total_" + key: m.TotalRecords,
		},
	}
}
