package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// pageQuery reads limit and offset from the query string. A missing or
// non-positive limit becomes def, anything above max is capped, and a
// negative offset becomes zero.
func pageQuery(c *gin.Context, def, max int) (limit, offset int) {
	limit = limitQuery(c, def, max)
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

func limitQuery(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	switch {
	case err != nil || n <= 0:
		return def
	case n > max:
		return max
	}
	return n
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

// parseOrder maps a client sort key to a column, or "" when not allowed.
func parseOrder(value string, allow map[string]string) string {
	return allow[strings.TrimSpace(strings.ToLower(value))]
}

// pageMeta assumes a full page means more rows may follow.
func pageMeta(limit, offset, count int) map[string]any {
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"count":    count,
		"has_next": count == limit,
	}
}

func boolPtr(v bool) *bool { return &v }
