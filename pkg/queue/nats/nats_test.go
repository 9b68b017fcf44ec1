package nats

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/queue"
)

type fakeMsg struct {
	jetstream.Msg

	data    []byte
	metaErr error

	acked int
	naked int
}

func (m *fakeMsg) Data() []byte {
	return m.data
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return &jetstream.MsgMetadata{NumDelivered: 2}, nil
}

func (m *fakeMsg) Ack() error {
	m.acked++
	return nil
}

func (m *fakeMsg) Nak() error {
	m.naked++
	return nil
}

func newSignalMsg(t *testing.T) (*fakeMsg, *domain.Signal) {
	t.Helper()

	signal := queue.NewSignal("test")
	data, err := queue.Encode(signal)
	require.NoError(t, err)

	return &fakeMsg{data: data}, signal
}

// fakeIterator hands out msgs, then returns err once msgs is closed.
type fakeIterator struct {
	jetstream.MessagesContext

	msgs chan jetstream.Msg
	err  error

	stopped  chan struct{}
	stopOnce sync.Once
	stops    atomic.Int32
}

func newFakeIterator(err error, msgs ...jetstream.Msg) *fakeIterator {
	it := &fakeIterator{
		msgs:    make(chan jetstream.Msg, len(msgs)),
		err:     err,
		stopped: make(chan struct{}),
	}
	for _, msg := range msgs {
		it.msgs <- msg
	}
	return it
}

func (it *fakeIterator) Next() (jetstream.Msg, error) {
	select {
	case <-it.stopped:
		return nil, jetstream.ErrMsgIteratorClosed
	default:
	}

	select {
	case msg, ok := <-it.msgs:
		if !ok {
			return nil, it.err
		}
		return msg, nil
	case <-it.stopped:
		return nil, jetstream.ErrMsgIteratorClosed
	}
}

func (it *fakeIterator) Stop() {
	it.stops.Add(1)
	it.stopOnce.Do(func() { close(it.stopped) })
}

func TestHandle_AckOnSuccess(t *testing.T) {
	logger, _ := test.NewNullLogger()
	msg, signal := newSignalMsg(t)

	var got *domain.Signal
	var delivery interface{}
	(&Queue{}).handle(context.Background(), logger, msg, func(ctx context.Context, s *domain.Signal) error {
		got = s
		if entry, ok := pkg.LoggerFromContext(ctx).(*log.Entry); ok {
			delivery = entry.Data["delivery"]
		}
		return nil
	})

	require.NotNil(t, got)
	assert.Equal(t, signal.Id, got.Id)
	assert.Equal(t, domain.SignalValue, got.Value)
	assert.Equal(t, uint64(2), delivery)
	assert.Equal(t, 1, msg.acked)
	assert.Equal(t, 0, msg.naked)
}

func TestHandle_NakOnFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	msg, _ := newSignalMsg(t)

	(&Queue{}).handle(context.Background(), logger, msg, func(context.Context, *domain.Signal) error {
		return errors.New("create failed")
	})

	assert.Equal(t, 0, msg.acked)
	assert.Equal(t, 1, msg.naked)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Redeploy failed", hook.LastEntry().Message)
}

func TestHandle_MetadataUnavailable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	msg, _ := newSignalMsg(t)
	msg.metaErr = errors.New("not a jetstream message")

	hasDelivery := true
	(&Queue{}).handle(context.Background(), logger, msg, func(ctx context.Context, _ *domain.Signal) error {
		if entry, ok := pkg.LoggerFromContext(ctx).(*log.Entry); ok {
			_, hasDelivery = entry.Data["delivery"]
		}
		return nil
	})

	assert.False(t, hasDelivery)
	assert.Equal(t, 1, msg.acked)
	assert.Equal(t, 0, msg.naked)
}

func TestConsume_ReadErrorStopsIterator(t *testing.T) {
	logger, _ := test.NewNullLogger()
	msg, _ := newSignalMsg(t)

	iter := newFakeIterator(errors.New("connection reset"), msg)
	close(iter.msgs)

	handled := 0
	err := (&Queue{}).consume(context.Background(), logger, iter, func(context.Context, *domain.Signal) error {
		handled++
		return nil
	})

	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, msg.acked)
	assert.GreaterOrEqual(t, iter.stops.Load(), int32(1))
}

func TestConsume_ClosedIteratorIsNotAnError(t *testing.T) {
	logger, _ := test.NewNullLogger()

	iter := newFakeIterator(jetstream.ErrMsgIteratorClosed)
	close(iter.msgs)

	err := (&Queue{}).consume(context.Background(), logger, iter, func(context.Context, *domain.Signal) error {
		return nil
	})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, iter.stops.Load(), int32(1))
}

func TestConsume_StopsWhenContextDone(t *testing.T) {
	logger, _ := test.NewNullLogger()
	iter := newFakeIterator(nil)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	go func() {
		result <- (&Queue{}).consume(ctx, logger, iter, func(context.Context, *domain.Signal) error {
			return nil
		})
	}()

	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after cancellation")
	}

	assert.GreaterOrEqual(t, iter.stops.Load(), int32(1))
}
