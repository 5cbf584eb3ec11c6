package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hexacorn/hexacorn-api/api/swagger"
	"github.com/hexacorn/hexacorn-api/internal/handler"
	"github.com/hexacorn/hexacorn-api/internal/middleware"
	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/internal/repository"
	"github.com/hexacorn/hexacorn-api/internal/service"
	"github.com/hexacorn/hexacorn-api/pkg/cache"
	"github.com/hexacorn/hexacorn-api/pkg/config"
	"github.com/hexacorn/hexacorn-api/pkg/database"
	"github.com/hexacorn/hexacorn-api/pkg/export"
	"github.com/hexacorn/hexacorn-api/pkg/logger"
	corsmiddleware "github.com/hexacorn/hexacorn-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hexacorn/hexacorn-api/pkg/middleware/requestid"
	"github.com/hexacorn/hexacorn-api/pkg/storage"
)

// @title Hexacorn API
// @version 1.0.0
// @description Department-scoped academic content distribution service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	cacheEnabled := err == nil
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare uploads storage", zap.Error(err))
	}
	exports, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare exports storage", zap.Error(err))
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cacheEnabled {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Settings.CacheTTL, logr, cacheEnabled)

	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	auditService := service.NewAuditService(userRepo, logr)
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	auditService.Start(rootCtx)
	defer auditService.Stop()

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	authService := service.NewAuthService(userRepo, directoryRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	settingsService := service.NewSettingsService(settingsRepo, cacheService, validate, logr, cfg.Settings.CacheTTL)
	contentService := service.NewContentService(contentRepo, uploads, settingsService, directoryRepo, signer, metricsService, auditService, validate, logr, service.ContentConfig{
		APIPrefix:   cfg.APIPrefix,
		VersionsDir: cfg.Uploads.VersionsDir,
	})
	userService := service.NewUserService(userRepo, contentRepo, directoryRepo, validate, logr)
	directoryService := service.NewDirectoryService(directoryRepo, contentRepo, validate, logr)
	exportService := service.NewExportService(contentRepo, exports, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authService)
	contentHandler := handler.NewContentHandler(contentService)
	adminHandler := handler.NewAdminHandler(userService, settingsService, exportService, uploads)
	metaHandler := handler.NewMetaHandler(settingsService, directoryService)
	directoryHandler := handler.NewDirectoryHandler(directoryService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	meta := api.Group("/meta")
	{
		meta.GET("/system", metaHandler.System)
		meta.GET("/departments", metaHandler.Departments)
		meta.GET("/divisions", metaHandler.Divisions)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	maintenance := middleware.Maintenance(settingsService)
	passwordGate := middleware.RequirePasswordChanged()
	canManage := middleware.RequireRoles(models.RoleAdmin, models.RoleCR)

	contents := api.Group("/contents", middleware.JWT(authService))
	{
		contents.GET("", contentHandler.Feed)
		contents.GET("/archive", contentHandler.Archive)
		contents.GET("/mine", canManage, contentHandler.Mine)
		contents.GET("/:id", contentHandler.Get)
		contents.GET("/:id/versions", contentHandler.Versions)
		contents.GET("/:id/download", contentHandler.DownloadURL)

		contents.POST("", maintenance, canManage, passwordGate, contentHandler.Upload)
		contents.PATCH("/:id", maintenance, canManage, passwordGate, contentHandler.Update)
		contents.DELETE("/:id", maintenance, canManage, passwordGate, contentHandler.Delete)
		contents.POST("/:id/pin", maintenance, canManage, passwordGate, contentHandler.Pin)
		contents.DELETE("/:id/pin", maintenance, canManage, passwordGate, contentHandler.Unpin)
	}

	// Signed-token downloads carry their own authentication in the token.
	api.GET("/contents/download/:token", contentHandler.Download)

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/cr", adminHandler.CreateCR)
		admin.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)
		admin.GET("/cr-applications", adminHandler.PendingApplications)
		admin.POST("/cr-applications/:id/approve", adminHandler.ApproveApplication)
		admin.POST("/cr-applications/:id/reject", adminHandler.RejectApplication)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/export", adminHandler.Export)

		settings := admin.Group("", middleware.Audit(auditService, models.AuditActionSettingsUpdate, "settings"))
		{
			settings.GET("/settings", adminHandler.GetSettings)
			settings.PATCH("/settings", adminHandler.UpdateSettings)
			settings.POST("/settings/logo", adminHandler.UploadLogo)
		}

		admin.POST("/departments", directoryHandler.CreateDepartment)
		admin.PATCH("/departments/:id", directoryHandler.RenameDepartment)
		admin.DELETE("/departments/:id", directoryHandler.DeleteDepartment)
		admin.POST("/divisions", directoryHandler.CreateDivision)
		admin.PATCH("/divisions/:id", directoryHandler.RenameDivision)
		admin.DELETE("/divisions/:id", directoryHandler.DeleteDivision)
	}

	// Expired export files are pruned in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				exportService.Cleanup()
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
