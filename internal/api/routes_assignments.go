package api

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/handlers"
	"github.com/guildhall-io/guildhall/internal/middleware"
)

func registerAssignmentRoutes(api *gin.RouterGroup, deps Dependencies) error {
	handler, err := handlers.NewAssignmentHandler(deps.DB, deps.Invalidator)
	if err != nil {
		return err
	}

	assignments := api.Group("/assignments")
	{
		// Listing stays readable by anonymous callers so embedding UIs can
		// render share dialogs from the same endpoint.
		assignments.GET("", handler.List)
		assignments.POST("", middleware.RequireAuth(), handler.Create)
		assignments.DELETE("/:id", middleware.RequireAuth(), handler.Delete)
	}

	return nil
}
