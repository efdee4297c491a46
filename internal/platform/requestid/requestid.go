package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const Header = "X-Request-Id"

// Middleware tags every request with an id, honoring one supplied by
// the client. The id is echoed on the response for log correlation.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(Header, id)
		c.Header(Header, id)
		c.Next()
	}
}
