package webapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicetrim-server-go/internal/domain/auth"
	"voicetrim-server-go/internal/platform/logging"
	httptransport "voicetrim-server-go/internal/transport/http"
)

// AuthMiddleware validates bearer tokens issued by the auth token helper and
// stores the verified client id on the request context.
func AuthMiddleware(token *auth.Token, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			httptransport.RespondError(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		ok, clientID, err := token.Verify(raw)
		if err != nil || !ok {
			if logger != nil {
				logger.WarnTag("Auth", "token rejected: %v", err)
			}
			httptransport.RespondError(c, http.StatusUnauthorized, "invalid authorization token")
			c.Abort()
			return
		}

		c.Set("client_id", clientID)
		c.Next()
	}
}
