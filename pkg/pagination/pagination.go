// Package pagination provides page/limit query parsing and the list response
// envelope shared by every collection endpoint.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts pagination parameters from the echo context. Invalid
// or missing values fall back to the defaults; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = DefaultPage
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns the total page count for the given result total.
func (p Params) Pages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Meta is the pagination block of a list response.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListResponse wraps a paginated API response. Count is the number of items
// on the current page; Total is the full result size.
type ListResponse struct {
	Success    bool        `json:"success"`
	Count      int         `json:"count"`
	Total      int         `json:"total"`
	Pagination Meta        `json:"pagination"`
	Data       interface{} `json:"data"`
}

// NewListResponse builds the envelope for one page of results. count must be
// the length of data so that empty pages serialize as count:0.
func NewListResponse(data interface{}, count, total int, p Params) *ListResponse {
	return &ListResponse{
		Success:    true,
		Count:      count,
		Total:      total,
		Pagination: Meta{Page: p.Page, Limit: p.Limit, Pages: p.Pages(total)},
		Data:       data,
	}
}
