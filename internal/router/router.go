package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/config"
	"github.com/librenovela/librenovela/internal/handlers"
	"github.com/librenovela/librenovela/internal/middleware"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/storage"
	"github.com/librenovela/librenovela/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func New(cfg *config.Config, database *gorm.DB, logger *logrus.Logger, tokens *auth.TokenManager, images *storage.ImageStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", types.TokenHeader, "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", types.TokenHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handlers.NewAuthHandler(database, tokens, logger)
	usersHandler := handlers.NewUsersHandler(database, images, logger)
	novelsHandler := handlers.NewNovelsHandler(database, images, logger)
	hub := handlers.NewNovelHub(cfg.AllowedOrigins())
	chaptersHandler := handlers.NewChaptersHandler(database, hub, logger)

	requireAuth := middleware.Auth(database, tokens)
	requireMember := middleware.RequireRole(models.RoleUser, models.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/registro", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		users := api.Group("/usuario", requireAuth)
		{
			users.GET("/misDatos", usersHandler.Me)
			users.GET("/:email", usersHandler.GetByEmail)
			users.POST("", middleware.RequireRole(models.RoleAdmin), usersHandler.Create)
			users.PUT("/imagen", usersHandler.UpdateImage)
		}

		novels := api.Group("/novela")
		{
			// Public browsing
			novels.GET("", novelsHandler.List)
			novels.GET("/:id", novelsHandler.Get)
			novels.GET("/buscar/:titulo", novelsHandler.SearchByTitle)
			novels.GET("/titulo/:titulo", novelsHandler.GetByTitle)
			novels.GET("/genero/:genero", novelsHandler.ListByGenre)
			novels.GET("/etiqueta/:etiqueta", novelsHandler.ListByTag)

			// Authenticated
			novels.POST("/nueva", requireAuth, requireMember, novelsHandler.Create)
			novels.PUT("/:id", requireAuth, novelsHandler.Update)
			novels.DELETE("/:id", requireAuth, novelsHandler.Delete)
			novels.POST("/puntuar/:id", requireAuth, novelsHandler.Rate)
			novels.PUT("/seguir/:id", requireAuth, novelsHandler.ToggleFollow)
			novels.GET("/seguidas", requireAuth, novelsHandler.ListFollowed)
			novels.GET("/publicadas", requireAuth, novelsHandler.ListPublished)
			novels.GET("/:id/ws", requireAuth, hub.Subscribe)

			chapters := novels.Group("/:id/capitulo", requireAuth)
			{
				chapters.POST("", chaptersHandler.Create)
				chapters.PUT("/:numero", chaptersHandler.Update)
				chapters.DELETE("/:numero", chaptersHandler.Delete)
			}
		}
	}

	return r
}
