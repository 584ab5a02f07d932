package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-Role"
)

// BarContext binds every request to the bar this node serves and records
// who is acting. Authentication happens upstream (the venue gateway); the
// engine only needs the acting user for the audit trail and idempotency
// key ownership.
func BarContext(barID id.ID) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := &appctx.UserContext{
			UserID: c.GetHeader(HeaderUserID),
			BarID:  barID.String(),
			Role:   c.GetHeader(HeaderRole),
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
