package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *emaildomain.InboundMessage {
	return &emaildomain.InboundMessage{
		ID:      "m1",
		Headers: []emaildomain.Header{{Name: "Subject", Value: "Office hours"}},
		Body:    "When are your office hours this week?",
	}
}

func TestBuildPromptWithContext(t *testing.T) {
	prompt := BuildPrompt(sampleMessage(), []docdomain.RetrievedContext{
		{Name: "Schedule", Content: "Office hours are Tuesdays 2-4pm."},
		{Name: "Syllabus", Content: "Late work loses 10% per day."},
	})

	sched := strings.Index(prompt, "Document Name: Schedule\nContent: Office hours are Tuesdays 2-4pm.")
	syl := strings.Index(prompt, "Document Name: Syllabus\nContent: Late work loses 10% per day.")
	instr := strings.Index(prompt, "professional, concise reply")
	subj := strings.Index(prompt, "Subject: Office hours")
	body := strings.Index(prompt, "Body:\nWhen are your office hours this week?")

	require.True(t, sched >= 0 && syl > sched, prompt)
	assert.Greater(t, instr, syl)
	assert.Greater(t, subj, instr)
	assert.Greater(t, body, subj)
	assert.NotContains(t, prompt, noContextPlaceholder)
}

func TestBuildPromptWithoutContextUsesPlaceholder(t *testing.T) {
	prompt := BuildPrompt(sampleMessage(), nil)
	assert.Contains(t, prompt, noContextPlaceholder)
	assert.Equal(t, 1, strings.Count(prompt, "Document Name:"))
}

func TestRetryPolicyDelays(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
	assert.Equal(t, 16*time.Second, p.Delay(5))
	assert.Equal(t, 16*time.Second, p.Delay(9))
	assert.Equal(t, time.Duration(0), p.Delay(0))
}

func TestGenerateSucceedsOnFifthAttempt(t *testing.T) {
	var slept []time.Duration
	var jitterCaps []time.Duration

	policy := DefaultRetryPolicy()
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	policy.Jitter = func(max time.Duration) time.Duration {
		jitterCaps = append(jitterCaps, max)
		return max / 2
	}

	gen := &scriptedGenerator{failures: 4}
	out, err := NewDraftGenerator(gen, policy, 0).Generate(context.Background(), sampleMessage(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, 5, gen.calls)
	require.Len(t, slept, 4)

	var base time.Duration
	for i, d := range slept {
		step := policy.Delay(i + 1)
		base += step
		assert.Equal(t, step/10, jitterCaps[i])
		assert.GreaterOrEqual(t, d, step)
		assert.LessOrEqual(t, d, step+step/10)
	}
	assert.Equal(t, 15*time.Second, base)
}

func TestDefaultJitterStaysInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		j := uniformJitter(100 * time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 100*time.Millisecond)
	}
}

func TestGenerateGivesUpAfterFiveAttempts(t *testing.T) {
	gen := &scriptedGenerator{failures: 10}
	_, err := NewDraftGenerator(gen, noSleepPolicy(), 0).Generate(context.Background(), sampleMessage(), nil)

	require.True(t, apperr.IsTransientProviderError(err))
	var providerErr *apperr.TransientProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 5, providerErr.Attempts)
	assert.Equal(t, 5, gen.calls)
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	gen := &scriptedGenerator{failures: 10}
	_, err := NewDraftGenerator(gen, policy, 0).Generate(ctx, sampleMessage(), nil)
	assert.True(t, apperr.IsTransientProviderError(err))
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateAppliesAttemptTimeout(t *testing.T) {
	gen := &deadlineGenerator{}
	_, err := NewDraftGenerator(gen, noSleepPolicy(), time.Minute).Generate(context.Background(), sampleMessage(), nil)
	require.NoError(t, err)
	assert.True(t, gen.hadDeadline)
}

type deadlineGenerator struct {
	hadDeadline bool
}

func (g *deadlineGenerator) Generate(ctx context.Context, _ string) (string, error) {
	_, g.hadDeadline = ctx.Deadline()
	return "ok", nil
}
