package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/handlers"
	"bitbucket.org/mmdatafocus/solarops_backend/middlewares"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/vendorsync"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

const defaultPort = "8080"

// RateLimiter throttles per client IP using a redis counter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated); everything else allows all for developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.OrgScopeMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/login", handlers.LoginHandler())
		api.POST("/logout", middlewares.RequireAuth(), handlers.LogoutHandler())
		api.POST("/change-password", middlewares.RequireAuth(), handlers.ChangePasswordHandler())
		api.GET("/me", middlewares.RequireAuth(), handlers.MeHandler())

		orgs := api.Group("/organizations", middlewares.RequireCapability(middlewares.CapManageOrganizations))
		{
			orgs.POST("", handlers.CreateOrganizationHandler())
			orgs.GET("", handlers.GetOrganizationsHandler())
			orgs.GET("/:id", handlers.GetOrganizationHandler())
			orgs.PUT("/:id", handlers.UpdateOrganizationHandler())
			orgs.PUT("/:id/active", handlers.ToggleActiveOrganizationHandler())
		}

		users := api.Group("/users", middlewares.RequireCapability(middlewares.CapManageUsers))
		{
			users.POST("", handlers.CreateUserHandler())
			users.GET("", handlers.GetUsersHandler())
			users.GET("/:id", handlers.GetUserHandler())
			users.PUT("/:id", handlers.UpdateUserHandler())
			users.DELETE("/:id", handlers.DeleteUserHandler())
		}

		vendors := api.Group("/vendors", middlewares.RequireCapability(middlewares.CapManageVendors))
		{
			vendors.POST("", handlers.CreateVendorHandler())
			vendors.GET("", handlers.GetVendorsHandler())
			vendors.GET("/:id", handlers.GetVendorHandler())
			vendors.PUT("/:id", handlers.UpdateVendorHandler())
			vendors.DELETE("/:id", handlers.DeleteVendorHandler())
		}
		api.POST("/vendors/:id/sync",
			middlewares.RequireCapability(middlewares.CapTriggerSync), vendorsync.TriggerSyncHandler())

		syncRuns := api.Group("/sync-runs", middlewares.RequireAuth(), middlewares.ReadOnlyForAuditors())
		{
			syncRuns.GET("", vendorsync.SyncHistoryHandler())
			syncRuns.GET("/:id", vendorsync.SyncRunDetailHandler())
			syncRuns.POST("/:id/retry",
				middlewares.RequireCapability(middlewares.CapTriggerSync), vendorsync.RetrySyncRunHandler())
		}

		plants := api.Group("/plants", middlewares.RequireAuth(), middlewares.ReadOnlyForAuditors())
		{
			plants.POST("", middlewares.RequireCapability(middlewares.CapManagePlants), handlers.CreatePlantHandler())
			plants.GET("", handlers.GetPlantsHandler())
			plants.GET("/:id", handlers.GetPlantHandler())
			plants.PUT("/:id", middlewares.RequireCapability(middlewares.CapManagePlants), handlers.UpdatePlantHandler())
			plants.PUT("/:id/active", middlewares.RequireCapability(middlewares.CapManagePlants), handlers.ToggleActivePlantHandler())
			plants.DELETE("/:id", middlewares.RequireCapability(middlewares.CapManagePlants), handlers.DeletePlantHandler())
		}

		workOrders := api.Group("/work-orders", middlewares.RequireAuth(), middlewares.ReadOnlyForAuditors())
		{
			workOrders.POST("", middlewares.RequireCapability(middlewares.CapManageWorkOrders), handlers.CreateWorkOrderHandler())
			workOrders.GET("", handlers.GetWorkOrdersHandler())
			workOrders.GET("/:id", handlers.GetWorkOrderHandler())
			workOrders.PUT("/:id", middlewares.RequireCapability(middlewares.CapManageWorkOrders), handlers.UpdateWorkOrderHandler())
			workOrders.PUT("/:id/status", middlewares.RequireCapability(middlewares.CapManageWorkOrders), handlers.UpdateWorkOrderStatusHandler())
			workOrders.GET("/:id/next-statuses", handlers.GetNextWorkOrderStatusesHandler())
			workOrders.POST("/:id/plants", middlewares.RequireCapability(middlewares.CapManageWorkOrders), handlers.AttachWorkOrderPlantsHandler())
			workOrders.DELETE("/:id/plants/:plantId", middlewares.RequireCapability(middlewares.CapManageWorkOrders), handlers.DetachWorkOrderPlantHandler())
		}

		alerts := api.Group("/alerts", middlewares.RequireAuth(), middlewares.ReadOnlyForAuditors())
		{
			alerts.POST("", middlewares.RequireCapability(middlewares.CapManageAlerts), handlers.CreateAlertHandler())
			alerts.GET("", handlers.GetAlertsHandler())
			alerts.GET("/:id", handlers.GetAlertHandler())
			alerts.PUT("/:id/acknowledge", middlewares.RequireCapability(middlewares.CapManageAlerts), handlers.AcknowledgeAlertHandler())
			alerts.PUT("/:id/resolve", middlewares.RequireCapability(middlewares.CapManageAlerts), handlers.ResolveAlertHandler())
		}

		api.GET("/dashboard/summary",
			middlewares.RequireCapability(middlewares.CapViewDashboard), handlers.DashboardSummaryHandler())
		api.GET("/histories",
			middlewares.RequireCapability(middlewares.CapViewHistories), handlers.GetHistoriesHandler())

		api.POST("/admin/clear-redis",
			middlewares.RequireCapability(middlewares.CapManageOrganizations), handlers.ClearRedisHandler())
	}

	// Pub/Sub push delivery for queued vendor sync runs.
	r.POST("/pubsub/vendor-sync", vendorsync.PubSubPushHandler())

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/api")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that collected gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware counts requests per client IP inside a rolling window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
