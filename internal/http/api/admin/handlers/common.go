package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// getAdminID extracts the admin ID from gin context.
func getAdminID(c *gin.Context) uint64 {
	val, exists := c.Get("adminID")
	if !exists {
		return 0
	}
	v, ok := val.(uint64)
	if !ok {
		return 0
	}
	return v
}

// paramUint parses an unsigned integer path parameter.
func paramUint(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// queryUint parses an unsigned integer query parameter, returning the
// fallback when absent or malformed.
func queryUint(c *gin.Context, name string, fallback uint64) uint64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// pagination reads page/page_size query parameters with sane bounds.
func pagination(c *gin.Context) (page, pageSize int) {
	page = int(queryUint(c, "page", 1))
	if page < 1 {
		page = 1
	}
	pageSize = int(queryUint(c, "page_size", 20))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
