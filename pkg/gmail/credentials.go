package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested at registration.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://mail.google.com/",
	"https://www.googleapis.com/auth/gmail.compose",
}

// CredentialBroker turns a long-lived refresh credential into a short-lived
// access token. Tokens are returned to the caller and never stored.
type CredentialBroker struct {
	config     *oauth2.Config
	timeout    time.Duration
	httpClient *http.Client
}

// NewCredentialBroker builds a broker for the OAuth client. An empty tokenURL
// uses Google's token endpoint.
func NewCredentialBroker(clientID, clientSecret, redirectURI, tokenURL string, timeout time.Duration) *CredentialBroker {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &CredentialBroker{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		timeout: timeout,
	}
}

// SetHTTPClient replaces the transport used for token requests.
func (b *CredentialBroker) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

func (b *CredentialBroker) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Exchange refreshes an access token. Any failure is an *apperr.AuthError.
func (b *CredentialBroker) Exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, &apperr.AuthError{Err: errors.New("refresh token is empty")}
	}

	ctx, cancel := b.context(ctx)
	defer cancel()

	token, err := b.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &apperr.AuthError{Err: fmt.Errorf("token endpoint rejected refresh (%s): %w", retrieveErr.ErrorCode, err)}
		}
		return nil, &apperr.AuthError{Err: err}
	}
	return token, nil
}

// ExchangeCode redeems an authorization code from the consent flow. The
// returned token carries the refresh token and the id_token extra.
func (b *CredentialBroker) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	token, err := b.config.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, &apperr.AuthError{Err: fmt.Errorf("code exchange failed: %w", err)}
	}
	return token, nil
}

// ClientID is the OAuth client the broker acts for; ID tokens are issued to it.
func (b *CredentialBroker) ClientID() string {
	return b.config.ClientID
}
