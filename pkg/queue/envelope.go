package queue

import (
	"encoding/json"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

const (
	EventType   = "com.dockerhub.push.redeploy"
	EventSource = "/api/DockerHubWebhook"
)

// NewSignal creates the fixed "update" signal sent for every webhook call.
func NewSignal(source string) *domain.Signal {
	if source == "" {
		source = EventSource
	}

	return &domain.Signal{
		Id:     uuid.NewString(),
		Source: source,
		Time:   time.Now().UTC(),
		Value:  domain.SignalValue,
	}
}

// Encode wraps the signal into a structured-mode CloudEvent.
func Encode(signal *domain.Signal) ([]byte, error) {
	event := cloudevents.NewEvent()
	event.SetID(signal.Id)
	event.SetSource(signal.Source)
	event.SetType(EventType)
	event.SetTime(signal.Time)

	if err := event.SetData(cloudevents.TextPlain, []byte(signal.Value)); err != nil {
		return nil, errors.Wrap(err, "set event data")
	}

	return json.Marshal(event)
}

// Decode never fails: payloads that are not CloudEvents become a signal whose value
// is the raw message, since consumers do not look at it anyway.
func Decode(data []byte) *domain.Signal {
	event := cloudevents.NewEvent()

	if err := json.Unmarshal(data, &event); err != nil || event.Validate() != nil {
		return &domain.Signal{Value: string(data)}
	}

	return &domain.Signal{
		Id:     event.ID(),
		Source: event.Source(),
		Time:   event.Time(),
		Value:  string(event.Data()),
	}
}
