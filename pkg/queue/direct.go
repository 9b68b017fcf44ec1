package queue

import (
	"context"

	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

type directQueue struct {
	redeployService domain.RedeployService
}

// NewDirectQueue skips the queue entirely: Enqueue runs the redeploy synchronously and
// returns its error.
func NewDirectQueue(redeployService domain.RedeployService) *directQueue {
	return &directQueue{redeployService: redeployService}
}

func (q *directQueue) Enqueue(ctx context.Context, signal *domain.Signal) error {
	return q.redeployService.Redeploy(ctx, signal)
}
