package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/gyms?"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	p, err := ParsePagination(contextWithQuery(""))
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, p)

	p, err = ParsePagination(contextWithQuery("page=3&page_size=10"))
	require.NoError(t, err)
	assert.Equal(t, 20, p.Offset())

	for _, q := range []string{"page=0", "page=x", "page_size=0", "page_size=101"} {
		_, err := ParsePagination(contextWithQuery(q))
		assert.ErrorIs(t, err, ErrInvalidPagination, q)
	}
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	c.Params = gin.Params{{Key: "gymID", Value: "12"}}
	id, ok := ParseID(c, "gymID")
	assert.True(t, ok)
	assert.Equal(t, 12, id)

	c.Params = gin.Params{{Key: "gymID", Value: "-1"}}
	_, ok = ParseID(c, "gymID")
	assert.False(t, ok)
}
