package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/bootstrap"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/http/handler"
	"github.com/yurykabanov/aci-redeployer/pkg/http/middleware"
	"github.com/yurykabanov/aci-redeployer/pkg/queue"
	"github.com/yurykabanov/aci-redeployer/pkg/queue/memory"
)

var (
	Build   = "unknown"
	Version = "unknown"
)

func main() {
	bootstrap.LoadConfiguration(bootstrap.ServerFlags)

	// we have to create both logrus logger and adapter of default golang logger specially for http.Server
	logger, httpErrorLogger := bootstrap.MustCreateLoggers()

	logger.WithFields(logrus.Fields{
		"build":   Build,
		"version": Version,
	}).Info("Redeployer webhook is starting...")

	ctx, cancel := context.WithCancel(pkg.WithLogger(context.Background(), logger))
	defer cancel()

	signalQueue, cleanup := mustCreateSignalQueue(ctx, logger)
	defer cleanup()

	// HTTP router, handlers and middleware
	router := mux.NewRouter()

	route := viper.GetString(bootstrap.ConfigWebhookRoute)

	healthHandler := handler.NewHealthHandler()
	webhookHandler := middleware.WithAccessKey(
		handler.NewWebhookHandler(signalQueue, route),
		viper.GetString(bootstrap.ConfigWebhookKey),
	)

	router.Handle("/health", healthHandler)
	router.Handle(route, webhookHandler).Methods(http.MethodGet, http.MethodPost)

	var httpHandler http.Handler = router

	if viper.GetBool(bootstrap.ConfigServerLogRequests) {
		httpHandler = middleware.WithRequestLogging(httpHandler)
	}
	httpHandler = middleware.WithLogger(httpHandler, logger)
	httpHandler = middleware.WithRequestId(httpHandler, middleware.DefaultRequestIdProvider)

	addr := viper.GetString(bootstrap.ConfigServerAddress)

	server := &http.Server{
		Addr:         addr,
		Handler:      httpHandler,
		ErrorLog:     httpErrorLogger,
		ReadTimeout:  viper.GetDuration(bootstrap.ConfigServerTimeoutRead),
		WriteTimeout: viper.GetDuration(bootstrap.ConfigServerTimeoutWrite),
	}

	// Shutdown notification channels
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Graceful shutdown
	go func() {
		<-quit
		logger.Info("Redeployer webhook is shutting down...")
		healthHandler.SetHealth(false)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), viper.GetDuration(bootstrap.ConfigServerShutdownTimeout))
		defer shutdownCancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Fatal("Could not gracefully shutdown the server")
		}
		cancel()
		close(done)
	}()

	logger.Infof("Server is ready to handle requests at %s%s", addr, route)
	healthHandler.SetHealth(true)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatalf("Could not listen on %s", addr)
	}

	<-done
	logger.Info("Redeployer webhook stopped")
}

// mustCreateSignalQueue picks where webhook signals go. The memory driver needs its
// consumer in this process, so it is started here.
func mustCreateSignalQueue(ctx context.Context, logger logrus.FieldLogger) (domain.SignalQueue, func()) {
	mode := viper.GetString(bootstrap.ConfigWebhookMode)
	driver := viper.GetString(bootstrap.ConfigQueueDriver)

	logger.WithFields(logrus.Fields{"mode": mode, "queue_driver": driver}).Debug("Configuring signal delivery")

	switch {
	case mode == bootstrap.WebhookModeDirect:
		redeploySvc, err := bootstrap.NewRedeployService()
		if err != nil {
			logger.WithError(err).Fatal("Couldn't create redeploy service")
		}
		return queue.NewDirectQueue(redeploySvc), func() {}

	case mode == bootstrap.WebhookModeQueue && driver == bootstrap.QueueDriverMemory:
		redeploySvc, err := bootstrap.NewRedeployService()
		if err != nil {
			logger.WithError(err).Fatal("Couldn't create redeploy service")
		}

		q := memory.NewQueue(viper.GetInt(bootstrap.ConfigQueueMemorySize))
		go q.Consume(ctx, redeploySvc.Redeploy)

		return q, func() {}

	case mode == bootstrap.WebhookModeQueue && driver == bootstrap.QueueDriverNats:
		q, err := bootstrap.NewNatsQueue(ctx)
		if err != nil {
			logger.WithError(err).Fatal("Couldn't connect to nats")
		}
		return q, q.Close

	default:
		logger.Fatalf("Unsupported webhook mode '%s' with queue driver '%s'", mode, driver)
		return nil, nil
	}
}
