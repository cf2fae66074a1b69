package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

func main() {
	// Basic logging
	log.Println("Starting Trade-In API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration: %s", cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models and seed reference data
	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedConditions(db); err != nil {
		log.Fatalf("Failed to seed conditions: %v", err)
	}
	if err := models.SeedStaffAdmins(db, cfg.StaffAdmins); err != nil {
		log.Fatalf("Failed to seed staff admins: %v", err)
	}
	log.Println("Database migration completed successfully")

	services.InitTokenService(cfg)

	if cfg.S3Enabled() {
		s3Service, err := services.InitS3Service(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		services.InitImageService(s3Service)
		log.Printf("Device images stored in s3://%s", cfg.AWSS3Bucket)
	} else {
		log.Println("AWS_S3_BUCKET not set, device image uploads are disabled")
	}

	publisher, err := services.InitEventPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		// Events are best effort; the API still serves without a broker
		log.Printf("warning: RabbitMQ unavailable, logging events instead: %v", err)
		services.SetEventPublisher(services.LogPublisher{})
	} else if closer, ok := publisher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	router, err := setupRouter(cfg)
	if err != nil {
		log.Fatalf("Failed to configure router: %v", err)
	}

	// Start server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Server is running on http://localhost:%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Trade-In API is running",
	})
}

// readinessCheck reports whether the database answers a ping
func readinessCheck(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not connected",
			},
		})
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
	})
}
