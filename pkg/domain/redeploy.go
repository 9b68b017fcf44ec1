package domain

import (
	"context"
)

// RedeployService recreates the target container group. The signal content is not
// used for anything but logging.
type RedeployService interface {
	Redeploy(context.Context, *Signal) error
}
