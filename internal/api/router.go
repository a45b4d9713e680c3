package api

import (
	"time"

	"recipe-planner/internal/api/handlers/grocery"
	"recipe-planner/internal/api/handlers/health"
	"recipe-planner/internal/api/handlers/mealplan"
	"recipe-planner/internal/api/middleware"
	mealplanService "recipe-planner/internal/core/mealplan"
	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	MealPlans *mealplanService.Service
	Checks    map[string]health.Checker
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())

	allowCredentials := true
	for _, origin := range cfg.Server.AllowOrigins {
		// 萬用來源不可同時允許憑證
		if origin == "*" {
			allowCredentials = false
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg.App.Version, deps.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		groceryHandler := grocery.NewHandler(deps.MealPlans)
		mealPlanHandler := mealplan.NewHandler(deps.MealPlans)

		users := api.Group("/users/:user_id")
		{
			users.GET("/grocery-list", groceryHandler.HandleUserGroceryList)
			users.GET("/meal-plans/calendar.ics", mealPlanHandler.HandleCalendar)
		}

		api.POST("/grocery-list", groceryHandler.HandleInlineGroceryList)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
