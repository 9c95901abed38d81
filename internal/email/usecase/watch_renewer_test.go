package usecase

import (
	"context"
	"errors"
	"testing"

	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewAllTalliesEachUser(t *testing.T) {
	users := newFakeUsers(
		authdomain.User{ID: 1, Email: "ok@example.com", EncryptedRefreshToken: "enc:good"},
		authdomain.User{ID: 2, Email: "none@example.com"},
		authdomain.User{ID: 3, Email: "revoked@example.com", EncryptedRefreshToken: "enc:bad"},
		authdomain.User{ID: 4, Email: "garbled@example.com", EncryptedRefreshToken: "xxxx"},
		authdomain.User{ID: 5, Email: "flaky@example.com", EncryptedRefreshToken: "enc:flaky"},
		authdomain.User{ID: 6, Email: "ok2@example.com", EncryptedRefreshToken: "enc:good2"},
	)
	provider := newFakeProvider()
	provider.watchErr["access-flaky"] = errors.New("network unreachable")
	broker := &fakeBroker{revoked: map[string]bool{"bad": true}}

	summary, err := NewWatchRenewer(users, broker, plainDecrypt, provider, "projects/p/topics/gmail").RenewAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RenewSummary{Total: 6, Succeeded: 2, Failed: 4}, summary)
	assert.ElementsMatch(t, []string{
		"access-good@projects/p/topics/gmail",
		"access-good2@projects/p/topics/gmail",
	}, provider.watches)
}

type failingListUsers struct {
	*fakeUsers
}

func (failingListUsers) ListWatchCandidates(context.Context) ([]authdomain.User, error) {
	return nil, errors.New("database down")
}

func TestRenewAllListingFailure(t *testing.T) {
	summary, err := NewWatchRenewer(failingListUsers{newFakeUsers()}, &fakeBroker{}, plainDecrypt, newFakeProvider(), "t").RenewAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, RenewSummary{}, summary)
}
