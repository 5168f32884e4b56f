package utils

import (
	"net/http"
	"strconv"
)

// Page is a 1-indexed page request with a fixed page size chosen by the
// listing, not by the client.
type Page struct {
	Number int
	Size   int
}

func (p Page) Skip() int64 {
	if p.Number <= 1 {
		return 0
	}
	return int64((p.Number - 1) * p.Size)
}

func (p Page) Limit() int64 { return int64(p.Size) }

// PageMeta is returned next to every paginated list.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

func NewPageMeta(p Page, total int64) PageMeta {
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return PageMeta{
		Page:       p.Number,
		Limit:      p.Size,
		Total:      total,
		TotalPages: pages,
		HasMore:    p.Number < pages,
	}
}

// PageFromRequest reads ?page= and clamps anything invalid to 1.
func PageFromRequest(r *http.Request, size int) Page {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		n = 1
	}
	return Page{Number: n, Size: size}
}
