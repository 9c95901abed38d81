package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	authdto "github.com/tgrozenski/agent-email/internal/auth/dto"
	"github.com/tgrozenski/agent-email/internal/auth/repository"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo  repository.UserRepository
	fcmRepo   repository.FCMTokenRepository
	exchanger CodeExchanger
	verifier  IDTokenVerifier
	mailbox   Mailbox
	encrypt   Encrypter
	topic     string
}

// NewAuthUsecase creates a new instance of authUsecase. An empty topic skips
// the initial watch registration.
func NewAuthUsecase(
	userRepo repository.UserRepository,
	fcmRepo repository.FCMTokenRepository,
	exchanger CodeExchanger,
	verifier IDTokenVerifier,
	mailbox Mailbox,
	encrypt Encrypter,
	topic string,
) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		fcmRepo:   fcmRepo,
		exchanger: exchanger,
		verifier:  verifier,
		mailbox:   mailbox,
		encrypt:   encrypt,
		topic:     topic,
	}
}

func (u *authUsecase) Login(ctx context.Context, code string) (*authdto.LoginResponse, error) {
	token, err := u.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, &apperr.AuthError{Err: errors.New("token response has no id_token")}
	}

	claims, err := u.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	existing, err := u.userRepo.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" && (existing == nil || !existing.HasRefreshToken()) {
		// Google only returns a refresh token on first consent.
		return nil, &apperr.AuthError{Email: claims.Email, Err: errors.New("no refresh token granted, consent must be given again")}
	}

	watermark, err := u.mailbox.CurrentWatermark(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read mailbox watermark: %w", err)
	}

	var encrypted string
	if token.RefreshToken != "" {
		encrypted, err = u.encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	created, err := u.userRepo.Create(ctx, &authdomain.User{
		Email:                 claims.Email,
		Name:                  claims.Name,
		EncryptedRefreshToken: encrypted,
		HistoryID:             watermark,
	})
	if err != nil {
		return nil, err
	}
	if !created && encrypted != "" {
		if err := u.userRepo.UpdateRefreshToken(ctx, claims.Email, encrypted); err != nil {
			return nil, err
		}
	}

	if u.topic != "" {
		if _, err := u.mailbox.Watch(ctx, token, u.topic, []string{emaildomain.InboxLabel}); err != nil {
			log.Printf("[Auth] Initial watch for %s failed: %v", claims.Email, err)
		}
	}

	log.Printf("[Auth] Login for %s (new user: %v)", claims.Email, created)
	return &authdto.LoginResponse{
		Message: "Login successful",
		IDToken: rawIDToken,
		Email:   claims.Email,
		Created: created,
	}, nil
}

func (u *authUsecase) Authenticate(ctx context.Context, idToken string) (*authdomain.User, error) {
	claims, err := u.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &apperr.AuthError{Email: claims.Email, Err: errors.New("user is not registered")}
	}
	return user, nil
}

func (u *authUsecase) RegisterDevice(ctx context.Context, userID uint, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &apperr.ValidationError{Message: "token is required"}
	}
	return u.fcmRepo.SaveToken(ctx, userID, token, deviceInfo)
}
