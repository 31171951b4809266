package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// orgIDFrom reads the acting organization from the request. The header wins
// over the query parameter.
func orgIDFrom(c *gin.Context) string {
	if value := strings.TrimSpace(c.GetHeader(HeaderOrg)); value != "" {
		return value
	}
	return strings.TrimSpace(c.Query("org_id"))
}
