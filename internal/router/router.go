package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/softdesk-dev/softdesk/internal/handlers"
	"github.com/softdesk-dev/softdesk/internal/middleware"
	"github.com/softdesk-dev/softdesk/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/:project_id", middleware.AuthMiddleware(), handlers.ProjectEvents)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/token/refresh", handlers.RefreshToken)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		users := api.Group("/users", middleware.AuthMiddleware())
		{
			users.GET("", handlers.ListUsers)
			users.GET("/:user_id", handlers.RetrieveUser)
			users.PATCH("/:user_id", handlers.UpdateUser)
			users.DELETE("/:user_id", handlers.DeleteUser)
		}

		projects := api.Group("/projects", middleware.AuthMiddleware())
		{
			projects.POST("", handlers.CreateProject)
			projects.GET("", handlers.ListProjects)

			scoped := projects.Group("/:project_id", middleware.RequireProjectAccess())
			{
				scoped.GET("", handlers.RetrieveProject)
				scoped.PATCH("", handlers.UpdateProject)
				scoped.DELETE("", handlers.DeleteProject)

				// Contributor endpoints: memberships are created and deleted,
				// never updated.
				scoped.GET("/contributors", handlers.ListContributors)
				scoped.POST("/contributors", handlers.AddContributor)
				scoped.DELETE("/contributors/:contributor_id", handlers.RemoveContributor)
				scoped.PUT("/contributors/:contributor_id", handlers.ContributorMethodNotAllowed)
				scoped.PATCH("/contributors/:contributor_id", handlers.ContributorMethodNotAllowed)

				// Issue endpoints
				scoped.GET("/issues", handlers.ListIssues)
				scoped.POST("/issues", handlers.CreateIssue)

				issues := scoped.Group("/issues/:issue_id", middleware.RequireIssue())
				{
					issues.GET("", handlers.RetrieveIssue)
					issues.PATCH("", handlers.UpdateIssue)
					issues.DELETE("", handlers.DeleteIssue)

					// Comment endpoints
					issues.GET("/comments", handlers.ListComments)
					issues.POST("/comments", handlers.CreateComment)
					issues.GET("/comments/:comment_id", handlers.RetrieveComment)
					issues.PATCH("/comments/:comment_id", handlers.UpdateComment)
					issues.DELETE("/comments/:comment_id", handlers.DeleteComment)
				}
			}
		}

		// Flat collection routes for nested resources list nothing without a
		// parent context.
		flat := api.Group("", middleware.AuthMiddleware())
		{
			flat.GET("/contributors", handlers.UnscopedList)
			flat.GET("/issues", handlers.UnscopedList)
			flat.GET("/comments", handlers.UnscopedList)
		}
	}

	return r
}
