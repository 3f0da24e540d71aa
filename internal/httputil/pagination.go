package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit parses the limit query parameter. A missing limit yields defaultLimit; a
// limit outside [1, maxLimit] is an error.
func ParseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, error) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", maxLimit)
	}
	return limit, nil
}
