package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryContext(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestPageQuery(t *testing.T) {
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 50, 0},
		{"limit=20&offset=40", 20, 40},
		{"limit=0&offset=-5", 50, 0},
		{"limit=9000", 500, 0},
		{"limit=abc&offset=xyz", 50, 0},
	}
	for _, tc := range cases {
		limit, offset := pageQuery(queryContext(tc.query), 50, 500)
		assert.Equal(t, tc.limit, limit, "query %q", tc.query)
		assert.Equal(t, tc.offset, offset, "query %q", tc.query)
	}
}

func TestParseOrder(t *testing.T) {
	allow := map[string]string{"date": "date"}
	assert.Equal(t, "date", parseOrder(" Date ", allow))
	assert.Empty(t, parseOrder("phase; drop table", allow))
	assert.Empty(t, parseOrder("", allow))
}
