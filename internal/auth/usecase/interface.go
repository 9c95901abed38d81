package usecase

import (
	"context"

	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	authdto "github.com/tgrozenski/agent-email/internal/auth/dto"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"golang.org/x/oauth2"
)

// AuthUsecase registers mailbox owners and authenticates API callers.
type AuthUsecase interface {
	// Login redeems an OAuth authorization code and registers the user.
	Login(ctx context.Context, code string) (*authdto.LoginResponse, error)
	// Authenticate resolves a bearer ID token to a registered user.
	Authenticate(ctx context.Context, idToken string) (*authdomain.User, error)
	RegisterDevice(ctx context.Context, userID uint, token, deviceInfo string) error
}

// CodeExchanger redeems authorization codes.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
}

// IDTokenVerifier checks a Google ID token's signature, expiry and audience.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*authdto.IDClaims, error)
}

// Mailbox is the part of the mail provider registration needs.
type Mailbox interface {
	CurrentWatermark(ctx context.Context, token *oauth2.Token) (string, error)
	Watch(ctx context.Context, token *oauth2.Token, topic string, labelIDs []string) (*emaildomain.WatchResult, error)
}

// Encrypter seals refresh credentials before they are stored.
type Encrypter func(plaintext string) (string, error)
