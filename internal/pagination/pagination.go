// Package pagination implements page-number pagination with the
// {count, next, previous, results} envelope.
package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Dan9191/aromastream/internal/models"
)

const pageParam = "page"

// ErrInvalidPage is returned for a page number that is malformed or past the last page.
var ErrInvalidPage = errors.New("invalid page")

// Params selects one page of a result set.
type Params struct {
	Page int
	Size int
}

// Limit is the maximum number of rows of the page.
func (p Params) Limit() int { return p.Size }

// Offset is the number of rows preceding the page.
func (p Params) Offset() int { return (p.Page - 1) * p.Size }

// FromRequest reads the "page" query parameter; a missing parameter means page 1.
func FromRequest(r *http.Request, size int) (Params, error) {
	raw := r.URL.Query().Get(pageParam)
	if raw == "" {
		return Params{Page: 1, Size: size}, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return Params{}, ErrInvalidPage
	}
	return Params{Page: page, Size: size}, nil
}

// NumPages returns the number of pages for count rows; an empty set has one page.
func (p Params) NumPages(count int) int {
	if count <= 0 {
		return 1
	}
	return (count + p.Size - 1) / p.Size
}

// Build wraps results into the envelope. base is the absolute URL of the
// current request and is used to derive the next and previous links.
func Build[T any](base *url.URL, p Params, count int, results []T) (models.Page[T], error) {
	if p.Page > p.NumPages(count) {
		return models.Page[T]{}, ErrInvalidPage
	}
	if results == nil {
		results = []T{}
	}
	page := models.Page[T]{Count: count, Results: results}
	if p.Page < p.NumPages(count) {
		next := pageLink(base, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageLink(base, p.Page-1)
		page.Previous = &prev
	}
	return page, nil
}

func pageLink(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	if page == 1 {
		q.Del(pageParam)
	} else {
		q.Set(pageParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RequestURL reconstructs the absolute URL of r, honouring X-Forwarded-Proto.
func RequestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	u.Host = r.Host
	return &u
}
