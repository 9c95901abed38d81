package usecase

import (
	"context"
	"errors"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdto "github.com/tgrozenski/agent-email/internal/auth/dto"

	"google.golang.org/api/idtoken"
)

// GoogleIDTokenVerifier validates ID tokens against Google's signing keys.
type GoogleIDTokenVerifier struct {
	audience string
}

// NewGoogleIDTokenVerifier accepts tokens issued to audience (the OAuth client id).
func NewGoogleIDTokenVerifier(audience string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{audience: audience}
}

func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, idToken string) (*authdto.IDClaims, error) {
	payload, err := idtoken.Validate(ctx, idToken, v.audience)
	if err != nil {
		return nil, &apperr.AuthError{Err: err}
	}
	return claimsFromPayload(payload)
}

func claimsFromPayload(payload *idtoken.Payload) (*authdto.IDClaims, error) {
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, &apperr.AuthError{Err: errors.New("id token has no email claim")}
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, &apperr.AuthError{Email: email, Err: errors.New("google email is not verified")}
	}

	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = "N/A"
	}
	return &authdto.IDClaims{Subject: payload.Subject, Email: email, Name: name}, nil
}
