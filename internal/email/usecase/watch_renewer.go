package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	authrepo "github.com/tgrozenski/agent-email/internal/auth/repository"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
)

// RenewSummary counts the users a renewal run touched.
type RenewSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// WatchRenewer re-registers the inbox push subscription of every user.
type WatchRenewer struct {
	users    authrepo.UserRepository
	broker   TokenExchanger
	decrypt  Decrypter
	provider emaildomain.MailProvider
	topic    string
}

func NewWatchRenewer(users authrepo.UserRepository, broker TokenExchanger, decrypt Decrypter, provider emaildomain.MailProvider, topic string) *WatchRenewer {
	return &WatchRenewer{
		users:    users,
		broker:   broker,
		decrypt:  decrypt,
		provider: provider,
		topic:    topic,
	}
}

// RenewAll renews every user's watch. One user's failure never stops the
// others; a failed listing of users yields an empty summary and the error.
func (w *WatchRenewer) RenewAll(ctx context.Context) (RenewSummary, error) {
	var summary RenewSummary

	users, err := w.users.ListWatchCandidates(ctx)
	if err != nil {
		return summary, err
	}

	summary.Total = len(users)
	for i := range users {
		user := &users[i]
		if err := w.renew(ctx, user); err != nil {
			summary.Failed++
			log.Printf("[WatchRenewer] Failed to renew watch for %s: %v", user.Email, err)
			continue
		}
		summary.Succeeded++
	}

	log.Printf("[WatchRenewer] Renewed %d/%d watches (%d failed)", summary.Succeeded, summary.Total, summary.Failed)
	return summary, nil
}

func (w *WatchRenewer) renew(ctx context.Context, user *authdomain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !user.HasRefreshToken() {
		return &apperr.AuthError{Email: user.Email, Err: errors.New("no refresh token stored")}
	}

	refresh, err := w.decrypt(user.EncryptedRefreshToken)
	if err != nil {
		return &apperr.AuthError{Email: user.Email, Err: fmt.Errorf("failed to decrypt refresh token: %w", err)}
	}
	token, err := w.broker.Exchange(ctx, refresh)
	if err != nil {
		return err
	}

	res, err := w.provider.Watch(ctx, token, w.topic, []string{emaildomain.InboxLabel})
	if err != nil {
		return err
	}
	log.Printf("[WatchRenewer] Watch renewed for %s until %d", user.Email, res.Expiration)
	return nil
}
