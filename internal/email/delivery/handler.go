package delivery

import (
	"context"
	"log"
	"net/http"

	emaildto "github.com/tgrozenski/agent-email/internal/email/dto"
	"github.com/tgrozenski/agent-email/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

// NotificationProcessor handles one mailbox notification.
type NotificationProcessor interface {
	Process(ctx context.Context, emailAddress string) usecase.ProcessResult
}

// WatchRenewer re-registers every user's mailbox watch.
type WatchRenewer interface {
	RenewAll(ctx context.Context) (usecase.RenewSummary, error)
}

type EmailHandler struct {
	processor NotificationProcessor
	renewer   WatchRenewer
}

func NewEmailHandler(processor NotificationProcessor, renewer WatchRenewer) *EmailHandler {
	return &EmailHandler{
		processor: processor,
		renewer:   renewer,
	}
}

// HandlePush receives a Pub/Sub push delivery. Malformed envelopes are
// acknowledged so the subscription does not redeliver them.
func (h *EmailHandler) HandlePush(c *gin.Context) {
	var req emaildto.PubSubPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[PubSub] Ignoring malformed push body: %v", err)
		c.JSON(http.StatusOK, emaildto.ProcessResponse{Status: "ignored", Error: "malformed push body"})
		return
	}

	notification, err := req.Notification()
	if err != nil {
		log.Printf("[PubSub] Ignoring push message %s: %v", req.Message.MessageID, err)
		c.JSON(http.StatusOK, emaildto.ProcessResponse{Status: "ignored", Error: err.Error()})
		return
	}

	log.Printf("[PubSub] Push notification for %s (historyId: %s)", notification.EmailAddress, notification.HistoryID)

	// The batch must not be cut short when the pusher hangs up.
	ctx := context.WithoutCancel(c.Request.Context())
	result := h.processor.Process(ctx, notification.EmailAddress)

	resp := emaildto.ProcessResponse{
		Status:    "ok",
		Outcome:   result.Outcome.String(),
		Drafted:   result.Drafted,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Watermark: result.Watermark,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	if !usecase.ShouldAck(result.Outcome) {
		resp.Status = "retry"
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RenewWatches re-registers the push watch of every user.
func (h *EmailHandler) RenewWatches(c *gin.Context) {
	summary, err := h.renewer.RenewAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.RenewResponse{
		Message:   "Watch renewal finished",
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	})
}
