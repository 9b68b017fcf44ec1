package handler

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/dockerhub"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/queue"
)

// maxBodySize caps how much of the notification is read for logging.
const maxBodySize = 1 << 20

type webhookHandler struct {
	signalQueue domain.SignalQueue
	source      string
}

func NewWebhookHandler(signalQueue domain.SignalQueue, source string) *webhookHandler {
	return &webhookHandler{
		signalQueue: signalQueue,
		source:      source,
	}
}

// ServeHTTP never validates the payload: whatever arrives, exactly one signal is
// enqueued and 200 is returned unless enqueueing fails.
func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := pkg.LoggerFromContext(r.Context())

	h.logNotification(logger, r)

	signal := queue.NewSignal(h.source)

	if err := h.signalQueue.Enqueue(r.Context(), signal); err != nil {
		logger.WithError(err).WithField("signal_id", signal.Id).Error("Unable to enqueue redeploy signal")

		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	logger.WithField("signal_id", signal.Id).Info("Redeploy signal enqueued")

	w.WriteHeader(http.StatusOK)
}

func (h *webhookHandler) logNotification(logger log.FieldLogger, r *http.Request) {
	if r.Body == nil {
		return
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(b) == 0 {
		return
	}

	n, err := dockerhub.Parse(b)
	if err != nil || !n.IsPush() {
		logger.Debug("Request body is not a docker hub push notification")
		return
	}

	logger.WithFields(log.Fields{
		"repository": n.Repository.RepoName,
		"tag":        n.PushData.Tag,
		"pusher":     n.PushData.Pusher,
	}).Infof("Docker hub reported push of '%s'", n.Image())
}
