package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/queue"
)

type Config struct {
	Url        string
	Stream     string `validate:"required"`
	Subject    string `validate:"required"`
	Durable    string `validate:"required"`
	MaxDeliver int
	AckWait    time.Duration
}

type Queue struct {
	config Config
	conn   *nats.Conn
	js     jetstream.JetStream
}

// Connect dials the server and makes sure the work-queue stream for the signal
// subject exists.
func Connect(ctx context.Context, config Config) (*Queue, error) {
	if config.Url == "" {
		config.Url = nats.DefaultURL
	}

	conn, err := nats.Connect(config.Url, nats.Name("aci-redeployer"))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats at %s", config.Url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "create jetstream context")
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      config.Stream,
		Subjects:  []string{config.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "create stream %s", config.Stream)
	}

	return &Queue{config: config, conn: conn, js: js}, nil
}

func (q *Queue) Close() {
	q.conn.Close()
}

func (q *Queue) Enqueue(ctx context.Context, signal *domain.Signal) error {
	data, err := queue.Encode(signal)
	if err != nil {
		return err
	}

	_, err = q.js.Publish(ctx, q.config.Subject, data, jetstream.WithMsgID(signal.Id))
	if err != nil {
		return errors.Wrapf(err, "publish to %s", q.config.Subject)
	}

	return nil
}

// Consume reads from a durable consumer with explicit acks. Messages the handler fails
// on are nak'ed and the server decides whether to redeliver (see MaxDeliver).
func (q *Queue) Consume(ctx context.Context, handler domain.SignalHandler) error {
	logger := pkg.LoggerFromContext(ctx)

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       q.config.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: q.config.Subject,
		MaxDeliver:    q.config.MaxDeliver,
	}
	if q.config.AckWait > 0 {
		consumerConfig.AckWait = q.config.AckWait
	}

	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.config.Stream, consumerConfig)
	if err != nil {
		return errors.Wrapf(err, "create consumer %s", q.config.Durable)
	}

	iter, err := consumer.Messages()
	if err != nil {
		return errors.Wrap(err, "create message iterator")
	}

	logger.WithFields(log.Fields{
		"stream":  q.config.Stream,
		"subject": q.config.Subject,
		"durable": q.config.Durable,
	}).Info("Waiting for redeploy signals")

	return q.consume(ctx, logger, iter, handler)
}

// consume drains iter until it is closed, ctx is done or reading fails. The iterator
// is stopped on every return path.
func (q *Queue) consume(ctx context.Context, logger log.FieldLogger, iter jetstream.MessagesContext, handler domain.SignalHandler) error {
	defer iter.Stop()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			iter.Stop()
		case <-done:
		}
	}()

	for {
		msg, err := iter.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read message")
		}

		q.handle(ctx, logger, msg, handler)
	}
}

func (q *Queue) handle(ctx context.Context, logger log.FieldLogger, msg jetstream.Msg, handler domain.SignalHandler) {
	signal := queue.Decode(msg.Data())

	fields := log.Fields{
		"signal_id":     signal.Id,
		"signal_source": signal.Source,
	}
	if meta, err := msg.Metadata(); err == nil {
		fields["delivery"] = meta.NumDelivered
	}
	signalLogger := logger.WithFields(fields)

	if err := handler(pkg.WithLogger(ctx, signalLogger), signal); err != nil {
		signalLogger.WithError(err).Error("Redeploy failed")

		if err := msg.Nak(); err != nil {
			signalLogger.WithError(err).Warn("Unable to nak message")
		}
		return
	}

	if err := msg.Ack(); err != nil {
		signalLogger.WithError(err).Warn("Unable to ack message")
	}
}
