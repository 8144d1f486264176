package middleware

import (
	"context"
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/permissions"
	"github.com/guildhall-io/guildhall/pkg/errors"
	"github.com/guildhall-io/guildhall/pkg/response"
)

// FlagComputer yields the operation flags an actor holds on a resource.
// Both the engine and the caching layer in front of it satisfy this.
type FlagComputer interface {
	Compute(ctx context.Context, resourceID string, resourceType permissions.ResourceType, actorID string) (permissions.FlagMap, error)
}

// RequireOperation gates a route on the actor holding the given operation
// for the resource identified by the named path parameter. Anonymous
// requests are evaluated too, since some resources are publicly readable.
func RequireOperation(computer FlagComputer, resourceType permissions.ResourceType, operation permissions.Operation, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID := c.Param(param)
		if resourceID == "" {
			response.Error(c, errors.NewBadRequest("missing resource identifier"))
			c.Abort()
			return
		}

		flags, err := computer.Compute(c.Request.Context(), resourceID, resourceType, ActorID(c))
		if err != nil {
			if stderrors.Is(err, permissions.ErrNotFound) {
				response.Error(c, errors.ErrNotFound)
			} else {
				response.Error(c, errors.ErrInternalServer)
			}
			c.Abort()
			return
		}
		if !flags[operation] {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
