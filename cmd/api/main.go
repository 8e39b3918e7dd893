package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/application"
	mongoRepo "github.com/tradesmatepro/fulfillment-service/internal/infrastructure/mongodb"
	"github.com/tradesmatepro/fulfillment-service/pkg/kafka"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/metrics"
	"github.com/tradesmatepro/fulfillment-service/pkg/middleware"
)

const serviceName = "fulfillment-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	ctx := context.Background()
	logger.Info("Starting fulfillment-service API")

	config := loadConfig()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	mongoClient, err := mongoRepo.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	producer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	jobRepo := mongoRepo.NewJobRepository(mongoClient, logger)
	reservationRepo := mongoRepo.NewReservationRepository(mongoClient, logger)
	pickListRepo := mongoRepo.NewPickListRepository(mongoClient, logger)
	movementRepo := mongoRepo.NewMovementRepository(mongoClient, logger)
	stockLevelRepo := mongoRepo.NewStockLevelRepository(mongoClient, logger)
	txRunner := mongoRepo.NewTxRunner(mongoClient)

	ledgerService := application.NewLedgerService(movementRepo, stockLevelRepo, txRunner, producer, logger, m)
	reservationService := application.NewReservationService(reservationRepo, stockLevelRepo, ledgerService, txRunner, producer, logger, m)
	pickListService := application.NewPickListService(pickListRepo, jobRepo, reservationRepo, stockLevelRepo, ledgerService, txRunner, producer, logger, m)
	coordinator := application.NewJobCoordinator(jobRepo, pickListRepo, reservationService, pickListService, ledgerService, txRunner, producer, logger, m)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	api.Use(middleware.TenantScope(middleware.DefaultTenantConfig()))
	{
		api.POST("/jobs", createJobHandler(coordinator, logger))
		api.GET("/jobs/:jobId", getJobHandler(coordinator, logger))
		api.POST("/jobs/:jobId/transition", transitionJobHandler(coordinator, logger))
		api.PUT("/jobs/:jobId/line-items/used", recordUsedQuantityHandler(coordinator, logger))

		api.POST("/jobs/:jobId/reservations", reserveHandler(reservationService, logger))
		api.GET("/jobs/:jobId/reservations", listReservationsHandler(reservationService, logger))
		api.DELETE("/jobs/:jobId/reservations", releaseReservationsHandler(reservationService, logger))

		api.POST("/jobs/:jobId/pick-list", generatePickListHandler(pickListService, logger))
		api.GET("/jobs/:jobId/pick-list", getPickListByJobHandler(pickListService, logger))
		api.POST("/jobs/:jobId/pick-list/auto-fill", autoFillHandler(pickListService, logger))
		api.GET("/jobs/:jobId/badge", badgeHandler(pickListService, logger))

		api.GET("/pick-lists/:pickListId", getPickListHandler(pickListService, logger))
		api.POST("/pick-lists/:pickListId/lines", addManualLineHandler(pickListService, logger))
		api.PATCH("/pick-lists/:pickListId/lines/:lineIndex", setLinePickedHandler(pickListService, logger))
		api.POST("/pick-lists/:pickListId/confirm", confirmPickHandler(pickListService, logger))

		api.POST("/stock/movements", appendMovementHandler(ledgerService, logger))
		api.GET("/stock/:itemId/:locationId", snapshotHandler(ledgerService, logger))
		api.GET("/stock/:itemId/:locationId/movements", historyHandler(ledgerService, logger))
		api.POST("/stock/:itemId/:locationId/recompute", recomputeHandler(ledgerService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongoRepo.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8010"),
		MongoDB: &mongoRepo.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
		},
		Kafka: &kafka.Config{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createJobHandler(service *application.JobCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			JobID     string `json:"jobId"`
			LineItems []struct {
				ItemID           string          `json:"itemId" binding:"required"`
				LocationID       string          `json:"locationId" binding:"required"`
				QuantityRequired decimal.Decimal `json:"quantityRequired" binding:"required"`
			} `json:"lineItems"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CreateJobCommand{JobID: req.JobID}
		for _, li := range req.LineItems {
			cmd.LineItems = append(cmd.LineItems, application.JobLineItemInput{
				ItemID:           li.ItemID,
				LocationID:       li.LocationID,
				QuantityRequired: li.QuantityRequired,
			})
		}

		job, err := service.CreateJob(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, job)
	}
}

func getJobHandler(service *application.JobCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		job, err := service.GetJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

func transitionJobHandler(service *application.JobCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			To string `json:"to" binding:"required,job_status"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.TransitionJobCommand{
			JobID: c.Param("jobId"),
			To:    req.To,
		}

		job, err := service.Transition(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

func recordUsedQuantityHandler(service *application.JobCoordinator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ItemID     string          `json:"itemId" binding:"required"`
			LocationID string          `json:"locationId" binding:"required"`
			Quantity   decimal.Decimal `json:"quantity" binding:"required"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.RecordUsedQuantityCommand{
			JobID:      c.Param("jobId"),
			ItemID:     req.ItemID,
			LocationID: req.LocationID,
			Quantity:   req.Quantity,
		}

		job, err := service.RecordUsedQuantity(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

func reserveHandler(service *application.ReservationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ItemID     string          `json:"itemId" binding:"required"`
			LocationID string          `json:"locationId" binding:"required"`
			Quantity   decimal.Decimal `json:"quantity" binding:"required"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ReserveStockCommand{
			JobID:      c.Param("jobId"),
			ItemID:     req.ItemID,
			LocationID: req.LocationID,
			Quantity:   req.Quantity,
		}

		result, err := service.Reserve(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func listReservationsHandler(service *application.ReservationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		reservations, err := service.ActiveByJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"reservations": reservations})
	}
}

func releaseReservationsHandler(service *application.ReservationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		released, err := service.ReleaseForJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"released": released})
	}
}

func generatePickListHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickList, err := service.GenerateForJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func getPickListByJobHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickList, err := service.GetByJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func autoFillHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickList, err := service.AutoFillRemaining(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func badgeHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		badge, err := service.Badge(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"badge": badge})
	}
}

func getPickListHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickList, err := service.Get(c.Request.Context(), c.Param("pickListId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func addManualLineHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ItemID     string          `json:"itemId" binding:"required"`
			LocationID string          `json:"locationId" binding:"required"`
			Quantity   decimal.Decimal `json:"quantity" binding:"required"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.AddManualLineCommand{
			PickListID: c.Param("pickListId"),
			ItemID:     req.ItemID,
			LocationID: req.LocationID,
			Quantity:   req.Quantity,
		}

		pickList, err := service.AddManualLine(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func setLinePickedHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		lineIndex, err := strconv.Atoi(c.Param("lineIndex"))
		if err != nil {
			responder.RespondBadRequest("lineIndex must be an integer")
			return
		}

		var req struct {
			Quantity decimal.Decimal `json:"quantity"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.SetLinePickedCommand{
			PickListID: c.Param("pickListId"),
			LineIndex:  lineIndex,
			Quantity:   req.Quantity,
		}

		pickList, err := service.SetLinePicked(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func confirmPickHandler(service *application.PickListService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickList, err := service.ConfirmPick(c.Request.Context(), c.Param("pickListId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, pickList)
	}
}

func appendMovementHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ItemID      string          `json:"itemId" binding:"required"`
			LocationID  string          `json:"locationId" binding:"required"`
			Type        string          `json:"type" binding:"required,movement_type"`
			Quantity    decimal.Decimal `json:"quantity" binding:"required"`
			ReferenceID string          `json:"referenceId"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.AppendMovementCommand{
			ItemID:      req.ItemID,
			LocationID:  req.LocationID,
			Type:        req.Type,
			Quantity:    req.Quantity,
			ReferenceID: req.ReferenceID,
		}

		snapshot, err := service.Append(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, snapshot)
	}
}

func snapshotHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		snapshot, err := service.Snapshot(c.Request.Context(), c.Param("itemId"), c.Param("locationId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

func historyHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				responder.RespondBadRequest("limit must be an integer")
				return
			}
			limit = parsed
		}

		movements, err := service.History(c.Request.Context(), c.Param("itemId"), c.Param("locationId"), limit)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"movements": movements})
	}
}

func recomputeHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		snapshot, err := service.Recompute(c.Request.Context(), c.Param("itemId"), c.Param("locationId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}
