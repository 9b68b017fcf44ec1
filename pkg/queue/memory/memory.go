package memory

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

var ErrQueueFull = errors.New("signal queue is full")

// queue is an in-process signal queue. It only works when the webhook receiver and the
// consumer live in the same process.
type queue struct {
	signals chan *domain.Signal
}

func NewQueue(size int) *queue {
	return &queue{
		signals: make(chan *domain.Signal, size),
	}
}

func (q *queue) Enqueue(ctx context.Context, signal *domain.Signal) error {
	select {
	case q.signals <- signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume runs handler for each signal in order. A failed signal is logged and dropped.
func (q *queue) Consume(ctx context.Context, handler domain.SignalHandler) error {
	logger := pkg.LoggerFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case signal := <-q.signals:
			signalLogger := logger.WithFields(log.Fields{
				"signal_id":     signal.Id,
				"signal_source": signal.Source,
			})

			if err := handler(pkg.WithLogger(ctx, signalLogger), signal); err != nil {
				signalLogger.WithError(err).Error("Redeploy failed")
			}
		}
	}
}
