package usecase

import (
	"context"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"golang.org/x/oauth2"
)

// TokenExchanger turns a stored refresh credential into an access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// ContextSource returns the documents most relevant to a query for one user.
type ContextSource interface {
	Retrieve(ctx context.Context, userID uint, query string, k int) ([]docdomain.RetrievedContext, error)
}

// DraftNotifier tells the user's devices that a reply draft is waiting.
type DraftNotifier interface {
	NotifyDraftReady(ctx context.Context, userID uint, msg *emaildomain.InboundMessage, draft *emaildomain.DraftResult) error
}

// Decrypter opens refresh credentials stored at rest.
type Decrypter func(ciphertext string) (string, error)
