package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminKeyRequired guards administrative endpoints with the configured API
// key. With no key configured every admin call is rejected.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	configured := strings.TrimSpace(s.cfg.Admin.APIKey)
	var configuredHash [32]byte
	if configured != "" {
		configuredHash = sha256.Sum256([]byte(configured))
	}

	return func(c *gin.Context) {
		if configured == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		presented := strings.TrimSpace(c.GetHeader("X-Api-Key"))
		if presented == "" {
			header := strings.Fields(c.GetHeader("Authorization"))
			if len(header) == 2 && header[0] == "Bearer" {
				presented = header[1]
			}
		}
		if presented == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		presentedHash := sha256.Sum256([]byte(presented))
		if subtle.ConstantTimeCompare(presentedHash[:], configuredHash[:]) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
