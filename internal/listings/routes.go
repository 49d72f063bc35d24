package listings

import (
	"github.com/gin-gonic/gin"

	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/pkg/models"
)

// Routes mounts listing and job endpoints on the authenticated group.
func Routes(rg *gin.RouterGroup, h *Handler) {
	listings := rg.Group("/listings")
	{
		listings.GET("", h.Listings)
		listings.POST("", auth.RequireRole(models.RoleFreelancer), h.CreateListing)
	}

	jobs := rg.Group("/jobs")
	{
		jobs.GET("", h.Jobs)
		jobs.POST("", auth.RequireRole(models.RoleClient), h.CreateJob)
		jobs.POST("/:id/applications", auth.RequireRole(models.RoleFreelancer), h.Apply)
		jobs.GET("/:id/applications", h.Applications)
		jobs.POST("/:id/applications/:appID/accept", auth.RequireRole(models.RoleClient), h.Accept)
	}
}
