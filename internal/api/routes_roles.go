package api

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/handlers"
	"github.com/guildhall-io/guildhall/internal/middleware"
)

func registerRoleRoutes(api *gin.RouterGroup, deps Dependencies) error {
	handler, err := handlers.NewRoleHandler(deps.DB)
	if err != nil {
		return err
	}

	roles := api.Group("/roles")
	roles.Use(middleware.RequireAuth())
	{
		roles.GET("", handler.List)
		roles.POST("", handler.Create)
		roles.PATCH("/:id", handler.Update)
		roles.DELETE("/:id", handler.Delete)
		roles.POST("/:id/members", handler.AddMember)
		roles.DELETE("/:id/members/:userID", handler.RemoveMember)
	}

	return nil
}
