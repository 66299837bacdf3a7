package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ephemera"
	"ephemera/config"
	"ephemera/internal/application/changefeed"
	"ephemera/internal/application/reconcile"
	"ephemera/internal/application/usecase"
	brokerRepository "ephemera/internal/domain/repository/broker"
	"ephemera/internal/infrastructure/broker"
	"ephemera/internal/infrastructure/database"
	"ephemera/internal/infrastructure/minio"
	"ephemera/internal/infrastructure/queue"
	"ephemera/internal/presentation"
	"ephemera/internal/presentation/handler"
	"ephemera/internal/presentation/middleware"
)

const shutdownTimeout = 10 * time.Second

func HandleRun(args []string) {
	if len(args) < 3 {
		ExitOnError(errors.New("at least 1 arguments expected\nuse help command for more information"))
	}

	cfg, err := config.Load(args[2])
	if err != nil {
		ExitOnError(err)
	}

	logger.InitGlobalLogger(&cfg.Logger)

	logger.Info("running ephemera", "version", ephemera.StringVersion())

	db, err := database.Connect(cfg.DBConfig)
	if err != nil {
		ExitOnError(err)
	}
	defer func() { _ = db.Stop() }()

	minIOClient, err := minio.New(cfg.MinIOClient)
	if err != nil {
		ExitOnError(err)
	}
	minIOUploader := minio.NewUploader(minIOClient, cfg.MinIOUploader)
	minIORemover := minio.NewRemover(minIOClient, cfg.MinIORemover)
	minIOLister := minio.NewLister(minIOClient)

	publisher, receiver, drainQueue, closeQueue := openQueue(cfg)
	defer closeQueue()

	ledger := database.NewOrphanLedger(db)
	retriever := database.NewContentRetriever(db)

	creator := usecase.NewCreator(database.NewOwnerRetriever(db), database.NewContentWriter(db),
		minIOUploader, minIORemover, ledger, cfg.Content)
	deleter := usecase.NewDeleter(retriever, database.NewContentRemover(db), minIORemover, cfg.Content)
	getter := usecase.NewGetter(retriever)

	coordinator := reconcile.NewCoordinator(receiver, minIORemover, ledger, cfg.Reconciler)
	scanner := reconcile.NewScanner(minIOLister, database.NewBlobIndex(db), coordinator, cfg.Reconciler)
	watcher := changefeed.NewWatcher(database.NewDeletionStream(db),
		database.NewCheckpointStore(db, cfg.Watcher.CheckpointName), publisher, scanner, cfg.Watcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinatorCtx, stopCoordinator := context.WithCancel(context.Background())
	defer stopCoordinator()
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()

	var coordinatorDone, watcherDone sync.WaitGroup

	coordinatorDone.Add(1)
	go func() {
		defer coordinatorDone.Done()
		if err := coordinator.Run(coordinatorCtx); err != nil && !errors.Is(err, context.Canceled) {
			ExitOnError(fmt.Errorf("coordinator: %w", err))
		}
	}()

	watcherDone.Add(1)
	go func() {
		defer watcherDone.Done()
		if err := watcher.Run(watcherCtx); err != nil && !errors.Is(err, context.Canceled) {
			ExitOnError(fmt.Errorf("watcher: %w", err))
		}
	}()

	scanner.Start(context.Background())
	if drainQueue != nil {
		// Events a previous process could not drain were already checkpointed.
		scanner.Trigger()
	}

	e := newServer(cfg)

	createHandler := handler.NewCreateHandler(creator)
	getHandler := handler.NewGetHandler(getter)
	deleteHandler := handler.NewDeleteHandler(deleter)
	adminHandler := handler.NewAdminHandler(ledger, coordinator, scanner, watcher)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	admin := e.Group("/admin", middleware.AdminKeyMiddleware(cfg.Admin.APIKey))
	admin.GET("/orphans", adminHandler.HandleListOrphans)
	admin.POST("/orphans/retry", adminHandler.HandleRetryOrphans)
	admin.POST("/scan", adminHandler.HandleScan)
	admin.GET("/watcher", adminHandler.HandleWatcher)

	e.POST("/", createHandler.Handle, middleware.AuthMiddleware(presentation.ActionCreate))
	e.GET("/owner/:"+presentation.PubKeyParam, getHandler.HandleList)
	e.GET("/:"+presentation.IDParam, getHandler.HandleGet)
	e.HEAD("/:"+presentation.IDParam, getHandler.HandleGet)
	e.DELETE("/:"+presentation.IDParam, deleteHandler.HandleDelete,
		middleware.AuthMiddleware(presentation.ActionDelete), middleware.AuthDeleteMiddleware())

	go func() {
		if err := e.Start(cfg.Default.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ExitOnError(fmt.Errorf("shutting down server: %w", err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "err", err)
	}

	stopWatcher()
	watcherDone.Wait()

	scanner.Stop()

	if drainQueue != nil {
		drainQueue()
		if !waitFor(&coordinatorDone, time.Duration(cfg.Reconciler.DrainTimeout)*time.Second) {
			logger.Warn("memory queue not drained in time, leaving the rest to the next startup scan")
		}
	}

	stopCoordinator()
	coordinatorDone.Wait()
}

// waitFor reports whether wg finished within timeout.
func waitFor(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func newServer(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderContentLength},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost,
			http.MethodDelete, http.MethodHead, http.MethodOptions},
		MaxAge: 86400,
	}))
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.Secure())
	e.Use(echoMiddleware.BodyLimit(cfg.Default.BodyLimit))
	e.Use(echoMiddleware.RateLimiter(echoMiddleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Default.RateLimit))))

	return e
}

// openQueue uses redis streams when a broker uri is configured and the
// in-process queue otherwise. Only the in-process queue needs draining on
// shutdown; redis keeps unacknowledged entries pending.
func openQueue(cfg *config.Config) (publisher brokerRepository.Publisher, receiver brokerRepository.Receiver,
	drain, closeQueue func(),
) {
	if cfg.BrokerConfig.URI == "" {
		logger.Warn("BROKER_URI is not set, using the in-memory queue")

		mem, err := queue.NewMemory(cfg.QueueCapacity)
		if err != nil {
			ExitOnError(err)
		}

		return mem, mem, mem.Close, func() {}
	}

	client, err := broker.NewClient(cfg.BrokerConfig)
	if err != nil {
		ExitOnError(err)
	}

	return broker.NewPublisher(client, cfg.PublisherConfig), broker.NewReceiver(client), nil, func() {
		_ = client.Close()
	}
}
