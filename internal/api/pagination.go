package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPagination = errors.New("page must be >= 1 and page_size between 1 and 100")

type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePagination reads the page and page_size query parameters.
func ParsePagination(c *gin.Context) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, ErrInvalidPagination
		}
		p.Page = n
	}

	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return p, ErrInvalidPagination
		}
		p.PageSize = n
	}

	return p, nil
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
