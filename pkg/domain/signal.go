package domain

import (
	"context"
	"time"
)

// SignalValue is the literal enqueued by the webhook receiver.
const SignalValue = "update"

type Signal struct {
	Id     string
	Source string
	Time   time.Time
	Value  string
}

type SignalQueue interface {
	Enqueue(context.Context, *Signal) error
}

type SignalHandler func(context.Context, *Signal) error

type SignalConsumer interface {
	// Consume blocks until ctx is done or the underlying transport fails.
	Consume(context.Context, SignalHandler) error
}
