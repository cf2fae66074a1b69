package main

import (
	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/controllers"
	"github.com/Josevinuez/trade-in-api/middleware"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMiddleware allows the configured browser origins. "*" allows any origin.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return cors.New(corsConfig)
}

// setupRouter builds the API. The database and the token service must be initialized first.
func setupRouter(cfg *config.Config) (*gin.Engine, error) {
	tokenValidator, err := middleware.NewTokenValidator(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware(cfg))

	limiter := middleware.NewFixedWindowLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/ready", readinessCheck)

		// Public catalog
		v1.GET("/categories", controllers.ListCategories)
		v1.GET("/brands", controllers.ListBrands)
		v1.GET("/conditions", controllers.ListConditions)
		v1.GET("/devices", controllers.ListDevices)
		v1.GET("/devices/:id", controllers.GetDevice)

		v1.POST("/quotes", middleware.RateLimit(limiter, "quotes"), controllers.CreateQuote)

		tradeIn := v1.Group("/trade-in", middleware.RateLimit(limiter, "trade-in"))
		{
			tradeIn.POST("", controllers.SubmitTradeIn)

			// Customer of record, proven by the order access token
			order := tradeIn.Group("/:orderNumber", middleware.RequireOrderAccess(services.GetTokenService()))
			order.GET("", controllers.GetTradeIn)
			order.POST("/decision", controllers.DecideTradeIn)
			order.POST("/cancel", controllers.CancelTradeIn)
		}

		staff := v1.Group("/staff",
			middleware.RateLimit(limiter, "staff"),
			middleware.EnsureValidToken(tokenValidator),
			middleware.RequireStaff(
				services.NewIdentityService(cfg),
				services.NewStaffService(config.GetDB(), cfg.StaffRoles),
			),
		)
		{
			staff.GET("/me", controllers.GetMe)

			staff.GET("/orders", controllers.ListOrders)
			staff.GET("/orders/:id", controllers.GetOrder)
			staff.GET("/orders/:id/history", controllers.GetOrderHistory)
			staff.PATCH("/orders/:id", controllers.UpdateOrder)
			staff.DELETE("/orders/:id", controllers.DeleteOrder)
			staff.GET("/stats", controllers.GetStats)

			staff.GET("/customers", controllers.ListCustomers)
			staff.GET("/customers/:id", controllers.GetCustomer)

			staff.GET("/categories", controllers.StaffListCategories)
			staff.POST("/categories", controllers.CreateCategory)
			staff.GET("/brands", controllers.StaffListBrands)
			staff.POST("/brands", controllers.CreateBrand)
			staff.GET("/devices", controllers.StaffListDevices)
			staff.GET("/devices/:id", controllers.StaffGetDevice)
			staff.POST("/devices", controllers.CreateDevice)
			staff.PUT("/devices/:id", controllers.UpdateDevice)
			staff.DELETE("/devices/:id", controllers.DeactivateDevice)
			staff.POST("/devices/:id/image", controllers.UploadDeviceImage)
			staff.POST("/devices/:id/storage-options", controllers.CreateStorageOption)
			staff.PUT("/storage-options/:id", controllers.UpdateStorageOption)
			staff.DELETE("/storage-options/:id", controllers.DeactivateStorageOption)

			members := staff.Group("/members", middleware.RequireRole(models.RoleAdmin))
			members.GET("", controllers.ListStaffMembers)
			members.POST("", controllers.CreateStaffMember)
			members.PATCH("/:id", controllers.UpdateStaffMember)
		}
	}

	return router, nil
}
