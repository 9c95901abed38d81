package usecase

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
	"github.com/tgrozenski/agent-email/pkg/ai"
)

const noContextPlaceholder = "No reference documents are available. Answer using only the information in the email."

const replyInstructions = `You are drafting a reply on behalf of the mailbox owner.
Write a professional, concise reply to the email below.
Use the reference documents above when they are relevant and do not invent facts that are not in them or in the email.
Return only the body of the reply, without a subject line.`

// RetryPolicy bounds how often a generation call is attempted and how long
// to wait between attempts.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	JitterFraction float64
	// Jitter returns a value in [0, max]. Defaults to uniform random.
	Jitter func(max time.Duration) time.Duration
	// Sleep blocks for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy: 5 attempts, 1s doubling up to 16s, plus up to 10% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		Multiplier:     2,
		MaxDelay:       16 * time.Second,
		JitterFraction: 0.1,
	}
}

// Delay is the wait before retry n (n >= 1) without jitter.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Wait sleeps before retry n for Delay(n) plus jitter.
func (p RetryPolicy) Wait(ctx context.Context, retry int) error {
	delay := p.Delay(retry)
	if maxJitter := time.Duration(float64(delay) * p.JitterFraction); maxJitter > 0 {
		jitter := p.Jitter
		if jitter == nil {
			jitter = uniformJitter
		}
		delay += jitter(maxJitter)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, delay)
}

func uniformJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DraftGenerator writes reply drafts with a generative provider.
type DraftGenerator struct {
	generator ai.Generator
	policy    RetryPolicy
	timeout   time.Duration
}

// NewDraftGenerator wraps generator with policy. timeout bounds each attempt; 0 disables it.
func NewDraftGenerator(generator ai.Generator, policy RetryPolicy, timeout time.Duration) *DraftGenerator {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &DraftGenerator{generator: generator, policy: policy, timeout: timeout}
}

// BuildPrompt lays out the reference documents, the reply instructions and
// the email, in that order.
func BuildPrompt(msg *emaildomain.InboundMessage, contexts []docdomain.RetrievedContext) string {
	var sb strings.Builder

	sb.WriteString("Reference documents:\n\n")
	if len(contexts) == 0 {
		sb.WriteString("Document Name: None\n")
		sb.WriteString("Content: " + noContextPlaceholder + "\n\n")
	}
	for _, c := range contexts {
		sb.WriteString("Document Name: " + c.Name + "\n")
		sb.WriteString("Content: " + c.Content + "\n\n")
	}

	sb.WriteString(replyInstructions)
	sb.WriteString("\n\n")
	sb.WriteString("Subject: " + msg.Subject() + "\n")
	sb.WriteString("Body:\n" + msg.Body + "\n")
	return sb.String()
}

// Generate builds the prompt and calls the provider under the retry policy.
// Exhausting every attempt yields an *apperr.TransientProviderError.
func (g *DraftGenerator) Generate(ctx context.Context, msg *emaildomain.InboundMessage, contexts []docdomain.RetrievedContext) (string, error) {
	prompt := BuildPrompt(msg, contexts)

	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &apperr.TransientProviderError{Attempts: attempt - 1, Err: err}
		}

		text, err := g.attempt(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Printf("[DraftGenerator] Attempt %d/%d for message %s failed: %v", attempt, g.policy.MaxAttempts, msg.ID, err)

		if attempt == g.policy.MaxAttempts {
			break
		}
		if err := g.policy.Wait(ctx, attempt); err != nil {
			return "", &apperr.TransientProviderError{Attempts: attempt, Err: fmt.Errorf("%w (retry aborted: %v)", lastErr, err)}
		}
	}

	return "", &apperr.TransientProviderError{Attempts: g.policy.MaxAttempts, Err: lastErr}
}

func (g *DraftGenerator) attempt(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.generator.Generate(ctx, prompt)
}
