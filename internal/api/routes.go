package api

import (
	"github.com/gin-gonic/gin"

	"realestate/server/internal/api/middleware"
	"realestate/server/internal/metrics"
)

// SetupRoutes mounts the API under /api/v1. limiter guards the public write
// endpoints and may be nil.
func SetupRoutes(router *gin.Engine, h *Handler, limiter *middleware.RateLimiter) {
	limit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = limiter.Middleware()
	}
	requireAuth := middleware.AuthMiddleware(h.accounts)

	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)

		accounts := api.Group("/auth", limit)
		{
			accounts.POST("/register", h.Register)
			accounts.POST("/login", h.Login)
		}

		api.POST("/enquiries", limit, h.SubmitEnquiry)

		properties := api.Group("/properties")
		{
			properties.POST("/search", h.SearchProperties)
			properties.GET("/:id", middleware.OptionalAuth(h.accounts), h.GetProperty)

			properties.GET("", requireAuth, h.ListProperties)
			properties.POST("", requireAuth, h.CreateProperty)
			properties.PUT("/:id", requireAuth, h.UpdateProperty)
			properties.DELETE("/:id", requireAuth, h.DeleteProperty)
			properties.GET("/:id/views", requireAuth, h.ListPropertyViews)
			properties.PATCH("/:id/publish", requireAuth, middleware.StaffOnly(), h.SetPublished)
		}

		profiles := api.Group("/profiles")
		{
			profiles.GET("/me", requireAuth, h.GetMyProfile)
			profiles.PATCH("/me", requireAuth, h.UpdateMyProfile)
			profiles.GET("/agents", h.ListAgents)
			profiles.GET("/top-agents", h.ListTopAgents)
			profiles.GET("/:agent_id/properties", h.ListAgentProperties)
			profiles.GET("/:agent_id/reviews", h.ListReviews)
			profiles.POST("/:agent_id/reviews", requireAuth, h.CreateReview)
		}
	}
}
