package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	authrepo "github.com/tgrozenski/agent-email/internal/auth/repository"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
	emailrepo "github.com/tgrozenski/agent-email/internal/email/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Outcome tags the result of one notification.
type Outcome int

const (
	// OutcomeProcessed: the batch ran and the watermark write was attempted successfully.
	OutcomeProcessed Outcome = iota + 1
	// OutcomeSkip: nothing to do for this notification.
	OutcomeSkip
	// OutcomeFatal: the batch could not run or its watermark could not be stored.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkip:
		return "skip"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ShouldAck reports whether the notification channel should be told the
// message was handled. Fatal outcomes are acked too: redelivering a
// notification whose credential or history is broken only repeats the failure.
func ShouldAck(o Outcome) bool {
	switch o {
	case OutcomeProcessed, OutcomeSkip, OutcomeFatal:
		return true
	}
	return false
}

// ProcessResult summarises one notification.
type ProcessResult struct {
	Outcome   Outcome
	Fetched   int
	Drafted   int
	Skipped   int
	Failed    int
	Watermark string
	Err       error
}

type messageStatus int

const (
	statusDrafted messageStatus = iota
	statusSkipped
	statusFailed
)

// NotificationProcessor runs one mailbox notification end to end: credential
// exchange, reconciliation, triage, retrieval, generation, publishing and
// the watermark advance. Messages are handled sequentially.
type NotificationProcessor struct {
	users      authrepo.UserRepository
	drafts     emailrepo.DraftHistoryRepository
	broker     TokenExchanger
	decrypt    Decrypter
	provider   emaildomain.MailProvider
	reconciler *ChangeSetReconciler
	retriever  ContextSource
	generator  *DraftGenerator
	publisher  *DraftPublisher
	notifier   DraftNotifier
	topK       int
}

func NewNotificationProcessor(
	users authrepo.UserRepository,
	drafts emailrepo.DraftHistoryRepository,
	broker TokenExchanger,
	decrypt Decrypter,
	provider emaildomain.MailProvider,
	retriever ContextSource,
	generator *DraftGenerator,
	topK int,
) *NotificationProcessor {
	return &NotificationProcessor{
		users:      users,
		drafts:     drafts,
		broker:     broker,
		decrypt:    decrypt,
		provider:   provider,
		reconciler: NewChangeSetReconciler(provider),
		retriever:  retriever,
		generator:  generator,
		publisher:  NewDraftPublisher(provider),
		topK:       topK,
	}
}

// SetNotifier enables draft-ready notifications.
func (p *NotificationProcessor) SetNotifier(n DraftNotifier) {
	p.notifier = n
}

// Process handles one notification for emailAddress. The watermark only
// moves after the change log was read successfully.
func (p *NotificationProcessor) Process(ctx context.Context, emailAddress string) ProcessResult {
	runID := uuid.NewString()[:8]
	logf := func(format string, args ...interface{}) {
		log.Printf("[Processor] [%s] "+format, append([]interface{}{runID}, args...)...)
	}

	fatal := func(res ProcessResult, err error) ProcessResult {
		logf("Notification for %s failed: %v", emailAddress, err)
		res.Outcome = OutcomeFatal
		res.Err = err
		return res
	}

	user, err := p.users.FindByEmail(ctx, emailAddress)
	if err != nil {
		return fatal(ProcessResult{}, err)
	}
	if user == nil {
		logf("No registered user for %s, skipping", emailAddress)
		return ProcessResult{Outcome: OutcomeSkip}
	}

	token, err := p.accessToken(ctx, user)
	if err != nil {
		return fatal(ProcessResult{}, err)
	}

	if user.HistoryID == "" {
		wm, err := p.resetWatermark(ctx, token, user.Email)
		if err != nil {
			return fatal(ProcessResult{}, err)
		}
		logf("No stored watermark for %s, starting from %s", user.Email, wm)
		return ProcessResult{Outcome: OutcomeSkip, Watermark: wm}
	}

	rec, err := p.reconciler.Reconcile(ctx, token, user.HistoryID)
	if errors.Is(err, emaildomain.ErrWatermarkExpired) {
		wm, resetErr := p.resetWatermark(ctx, token, user.Email)
		if resetErr != nil {
			return fatal(ProcessResult{}, errors.Join(err, resetErr))
		}
		logf("History for %s expired, watermark reset to %s", user.Email, wm)
		return fatal(ProcessResult{Watermark: wm}, err)
	}
	if err != nil {
		return fatal(ProcessResult{}, err)
	}

	res := ProcessResult{
		Fetched: len(rec.Messages),
		Failed:  len(rec.Skipped),
	}
	logf("Reconciled %s from %s: %d messages, %d fetch failures", user.Email, user.HistoryID, len(rec.Messages), len(rec.Skipped))

	for _, msg := range rec.Messages {
		switch p.handleMessage(ctx, token, user, msg, logf) {
		case statusDrafted:
			res.Drafted++
		case statusSkipped:
			res.Skipped++
		case statusFailed:
			res.Failed++
		}
	}

	candidate := rec.CandidateWatermark
	if len(rec.Messages) == 0 && len(rec.Skipped) == 0 {
		// Nothing arrived in the inbox; move past the empty window.
		candidate = rec.LogWatermark
	}
	if candidate != "" {
		advanced, err := p.users.AdvanceWatermark(ctx, user.Email, candidate)
		if err != nil {
			return fatal(res, err)
		}
		if advanced {
			res.Watermark = candidate
		}
	}

	res.Outcome = OutcomeProcessed
	logf("Done for %s: drafted=%d skipped=%d failed=%d watermark=%q", user.Email, res.Drafted, res.Skipped, res.Failed, res.Watermark)
	return res
}

func (p *NotificationProcessor) accessToken(ctx context.Context, user *authdomain.User) (*oauth2.Token, error) {
	if !user.HasRefreshToken() {
		return nil, &apperr.AuthError{Email: user.Email, Err: errors.New("no refresh token stored")}
	}
	refresh, err := p.decrypt(user.EncryptedRefreshToken)
	if err != nil {
		return nil, &apperr.AuthError{Email: user.Email, Err: fmt.Errorf("failed to decrypt refresh token: %w", err)}
	}
	token, err := p.broker.Exchange(ctx, refresh)
	if err != nil {
		var authErr *apperr.AuthError
		if errors.As(err, &authErr) && authErr.Email == "" {
			authErr.Email = user.Email
			return nil, authErr
		}
		return nil, &apperr.AuthError{Email: user.Email, Err: err}
	}
	return token, nil
}

func (p *NotificationProcessor) resetWatermark(ctx context.Context, token *oauth2.Token, email string) (string, error) {
	current, err := p.provider.CurrentWatermark(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to read current watermark: %w", err)
	}
	if err := p.users.SetWatermark(ctx, email, current); err != nil {
		return "", err
	}
	return current, nil
}

func (p *NotificationProcessor) handleMessage(
	ctx context.Context,
	token *oauth2.Token,
	user *authdomain.User,
	msg *emaildomain.InboundMessage,
	logf func(string, ...interface{}),
) messageStatus {
	if strings.TrimSpace(msg.Body) == "" {
		logf("Message %s has no plain text body, skipping", msg.ID)
		return statusSkipped
	}
	if IsLikelyUnimportant(msg) {
		logf("Message %s looks unimportant, skipping", msg.ID)
		return statusSkipped
	}

	alreadyClaimed, err := p.drafts.Claim(ctx, user.ID, msg.ID)
	if err != nil {
		logf("Could not claim message %s: %v", msg.ID, err)
		return statusFailed
	}
	if alreadyClaimed {
		logf("Message %s already has a draft, skipping", msg.ID)
		return statusSkipped
	}

	release := func() {
		if err := p.drafts.Release(ctx, user.ID, msg.ID); err != nil {
			logf("Could not release claim on %s: %v", msg.ID, err)
		}
	}

	contexts, err := p.retriever.Retrieve(ctx, user.ID, msg.Subject()+"\n"+msg.Body, p.topK)
	if err != nil {
		logf("Context retrieval for %s failed, drafting without documents: %v", msg.ID, err)
		contexts = nil
	}

	text, err := p.generator.Generate(ctx, msg, contexts)
	if err != nil {
		logf("Draft generation for %s failed: %v", msg.ID, err)
		release()
		return statusFailed
	}

	draft, err := p.publisher.Publish(ctx, token, text, msg.ID)
	if err != nil {
		logf("Publishing draft for %s failed: %v", msg.ID, err)
		release()
		return statusFailed
	}

	if err := p.drafts.Complete(ctx, user.ID, msg.ID, draft.DraftID); err != nil {
		logf("Could not record draft %s for %s: %v", draft.DraftID, msg.ID, err)
	}
	logf("Draft %s created for message %s in thread %s", draft.DraftID, msg.ID, draft.ThreadID)

	if p.notifier != nil {
		if err := p.notifier.NotifyDraftReady(ctx, user.ID, msg, draft); err != nil {
			logf("Draft notification for %s failed: %v", msg.ID, err)
		}
	}
	return statusDrafted
}
