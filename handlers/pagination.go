package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// PaginationParams drives timestamp-cursor pagination: clients walk backwards
// through a listing with ?before=<RFC3339Nano cursor> and ?limit=N. Listing
// queries over-fetch by one row to detect whether more data exists.
type PaginationParams struct {
	Limit  int
	Before *time.Time
}

// CursorResponse is the common envelope of every paginated listing.
type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

func ParsePagination(c *gin.Context) PaginationParams {
	p := PaginationParams{Limit: DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			p.Limit = l
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if beforeStr := c.Query("before"); beforeStr != "" {
		if t, err := time.Parse(time.RFC3339Nano, beforeStr); err == nil {
			p.Before = &t
		}
	}

	return p
}

// CacheKey builds a cache key that distinguishes pages of the same listing.
func (p PaginationParams) CacheKey(prefix, filter string) string {
	beforeStr := ""
	if p.Before != nil {
		beforeStr = Cursor(*p.Before)
	}
	return fmt.Sprintf("%s:%s:%d:%s", prefix, filter, p.Limit, beforeStr)
}

// Page resolves an over-fetched row count into the number of rows to return
// and whether a further page exists.
func (p PaginationParams) Page(fetched int) (keep int, hasMore bool) {
	if fetched > p.Limit {
		return p.Limit, true
	}
	return fetched, false
}

// Cursor renders a row timestamp as an opaque pagination cursor.
func Cursor(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
