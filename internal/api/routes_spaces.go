package api

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/handlers"
	"github.com/guildhall-io/guildhall/internal/middleware"
)

func registerSpaceRoutes(api *gin.RouterGroup, deps Dependencies) error {
	handler, err := handlers.NewSpaceHandler(deps.DB)
	if err != nil {
		return err
	}

	spaces := api.Group("/spaces")
	{
		spaces.GET("/:id", handler.Get)
		spaces.GET("/:id/workflow-limit", handler.WorkflowLimit)
		spaces.GET("/:id/members", handler.ListMembers)

		spaces.POST("", middleware.RequireAuth(), handler.Create)
		spaces.PATCH("/:id/tier", middleware.RequireAuth(), handler.SetTier)
		spaces.POST("/:id/members", middleware.RequireAuth(), handler.AddMember)
		spaces.PATCH("/:id/members/:userID", middleware.RequireAuth(), handler.SetAdmin)
		spaces.DELETE("/:id/members/:userID", middleware.RequireAuth(), handler.RemoveMember)
	}

	return nil
}
