package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/lingoflow/internal/observability/context"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
)

// HeaderOrg carries the tenant resolved by the authentication layer in front
// of this service.
const HeaderOrg = "X-Org-Id"

// TenantRequired binds the acting tenant to the request context and rejects
// requests without one.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		orgID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || orgID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
