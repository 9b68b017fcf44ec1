package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

func TestNewSignal(t *testing.T) {
	a := NewSignal("")
	b := NewSignal("/custom")

	assert.Equal(t, domain.SignalValue, a.Value)
	assert.Equal(t, EventSource, a.Source)
	assert.Equal(t, "/custom", b.Source)
	assert.NotEmpty(t, a.Id)
	assert.NotEqual(t, a.Id, b.Id)
}

func TestEncodeDecode(t *testing.T) {
	signal := &domain.Signal{
		Id:     "abc",
		Source: EventSource,
		Time:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Value:  "update",
	}

	data, err := Encode(signal)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"com.dockerhub.push.redeploy"`)

	decoded := Decode(data)
	assert.Equal(t, "abc", decoded.Id)
	assert.Equal(t, "update", decoded.Value)
	assert.True(t, signal.Time.Equal(decoded.Time))
}

func TestDecode_PlainPayload(t *testing.T) {
	decoded := Decode([]byte("update"))

	assert.Equal(t, "update", decoded.Value)
	assert.Empty(t, decoded.Id)
}

func TestDecode_JsonButNotEvent(t *testing.T) {
	decoded := Decode([]byte(`{"hello":"world"}`))

	assert.Equal(t, `{"hello":"world"}`, decoded.Value)
}

type recordingService struct {
	signals []*domain.Signal
	err     error
}

func (s *recordingService) Redeploy(ctx context.Context, signal *domain.Signal) error {
	s.signals = append(s.signals, signal)
	return s.err
}

func TestDirectQueue(t *testing.T) {
	svc := &recordingService{err: assert.AnError}
	q := NewDirectQueue(svc)

	err := q.Enqueue(context.Background(), NewSignal(""))

	assert.Equal(t, assert.AnError, err)
	assert.Len(t, svc.signals, 1)
}
