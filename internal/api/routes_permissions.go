package api

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall-io/guildhall/internal/handlers"
)

func registerPermissionRoutes(api *gin.RouterGroup, deps Dependencies) error {
	handler, err := handlers.NewPermissionHandler(deps.Computer, deps.Engine)
	if err != nil {
		return err
	}

	perms := api.Group("/permissions")
	{
		perms.GET("/compute", handler.Compute)
		perms.POST("/bulk", handler.BulkCompute)
		perms.GET("/rollup", handler.Rollup)
	}

	return nil
}
