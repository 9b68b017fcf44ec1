package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/bootstrap"
)

var (
	Build   = "unknown"
	Version = "unknown"
)

func main() {
	bootstrap.LoadConfiguration()

	logger, _ := bootstrap.MustCreateLoggers()

	logger.WithFields(logrus.Fields{
		"build":   Build,
		"version": Version,
	}).Info("Redeployer worker is starting...")

	if driver := viper.GetString(bootstrap.ConfigQueueDriver); driver != bootstrap.QueueDriverNats {
		logger.Fatalf("Worker requires the nats queue driver, got '%s'", driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = pkg.WithLogger(ctx, logger)

	redeploySvc, err := bootstrap.NewRedeployService()
	if err != nil {
		logger.WithError(err).Fatal("Couldn't create redeploy service")
	}

	q, err := bootstrap.NewNatsQueue(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Couldn't connect to nats")
	}
	defer q.Close()

	if err := q.Consume(ctx, redeploySvc.Redeploy); err != nil {
		logger.WithError(err).Error("Consumer stopped")
		return
	}

	logger.Info("Redeployer worker stopped")
}
