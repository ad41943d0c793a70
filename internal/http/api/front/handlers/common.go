package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
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
