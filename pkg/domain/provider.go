package domain

import (
	"context"

	"github.com/pkg/errors"
)

var ErrResourceGroupNotFound = errors.New("resource group not found")

type Credentials struct {
	ClientId       string `validate:"required"`
	ClientSecret   string `validate:"required"`
	TenantId       string `validate:"required"`
	SubscriptionId string `validate:"required"`
}

type ResourceGroup struct {
	Name     string
	Location string
}

// Provider hands out an authenticated Session. Sessions are never cached: every
// redeploy authenticates again.
type Provider interface {
	Authenticate(context.Context, *Credentials) (Session, error)
}

type Session interface {
	ResourceGroup(ctx context.Context, name string) (*ResourceGroup, error)
	// CreateContainerGroup blocks until the provider reports the group as created.
	CreateContainerGroup(context.Context, *Descriptor) error
}
