// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// Services take repository interfaces and return apperror values for
// rule violations. They know nothing about HTTP, so the CLI calls them too.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sakif/socialpulse/internal/apperror"
	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/repository"
	"github.com/sakif/socialpulse/internal/verifier"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
	MaxHandleLength   = 100
)

// msgInvalidCredentials is deliberately the same for an unknown username
// and a wrong password.
const msgInvalidCredentials = "invalid username or password"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// HandleVerifier checks a handle against its live platform.
type HandleVerifier interface {
	Verify(ctx context.Context, platform model.Platform, handle string) verifier.Verification
}

// EmailConfirmer proves an address accepts mail by sending to it.
type EmailConfirmer interface {
	Confirm(ctx context.Context, email string) error
}

// RegisterInput is what a new user submits. The platform handles are optional.
type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	YouTube   string `json:"youtube"`
	Instagram string `json:"instagram"`
}

// normalize trims every field except the password.
func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.YouTube = strings.TrimSpace(in.YouTube)
	in.Instagram = strings.TrimSpace(in.Instagram)
}

// Validate checks field shapes. It does not touch the network or database.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username,
			validation.Required.Error("username is required"),
			validation.RuneLength(MinUsernameLength, MaxUsernameLength).
				Error(fmt.Sprintf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)),
			validation.Match(usernamePattern).
				Error("username may only contain letters, digits, '.', '_' and '-'"),
		),
		validation.Field(&in.Password,
			validation.Required.Error("password is required"),
			validation.Length(MinPasswordLength, MaxPasswordLength).
				Error(fmt.Sprintf("password must be %d to %d bytes", MinPasswordLength, MaxPasswordLength)),
		),
		validation.Field(&in.Email,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("invalid email format"),
		),
		validation.Field(&in.YouTube, validation.Length(0, MaxHandleLength)),
		validation.Field(&in.Instagram, validation.Length(0, MaxHandleLength)),
	)
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// AccountService handles registration, login and the owner's own handles.
type AccountService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	verifier  HandleVerifier
	// confirmer is nil when signup email confirmation is off.
	confirmer EmailConfirmer
	logger    *slog.Logger
}

// NewAccountService creates an AccountService. A nil confirmer skips the
// signup email check.
func NewAccountService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	verifier HandleVerifier,
	confirmer EmailConfirmer,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		verifier:  verifier,
		confirmer: confirmer,
		logger:    logger,
	}
}

// Register creates an account. Handles supplied at registration must verify
// against their platform, and with a confirmer the email address must accept
// a confirmation message, or the request is rejected.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.verifyOwnHandles(ctx, in.YouTube, in.Instagram); err != nil {
		return nil, err
	}

	if s.confirmer != nil {
		if err := s.confirmer.Confirm(ctx, in.Email); err != nil {
			s.logger.Info("signup email rejected",
				slog.String("username", in.Username),
				slog.String("error", err.Error()),
			)
			return nil, apperror.ValidationFailed("email", "could not send a confirmation email to this address")
		}
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	account := &model.Account{
		Username:        in.Username,
		PasswordHash:    hash,
		Email:           in.Email,
		YouTubeHandle:   in.YouTube,
		InstagramHandle: in.Instagram,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating %s: %w", in.Username, err)
	}

	s.logger.Info("account registered", slog.String("username", account.Username))
	return account, nil
}

// Login checks the password and issues a session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: loading %s: %w", username, err)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("username", username))
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: checking password: %w", err)
	}

	token, err := s.tokens.Generate(account.Username)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for %s: %w", username, err)
	}

	s.logger.Info("user logged in", slog.String("username", username))
	return &AuthResult{Account: account, Token: token}, nil
}

// Profile returns the account for username.
func (s *AccountService) Profile(ctx context.Context, username string) (*model.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: loading %s: %w", username, err)
	}
	return account, nil
}

// UpdateHandles replaces the owner's own handles after verifying them.
// An empty handle clears that platform.
func (s *AccountService) UpdateHandles(ctx context.Context, username, youtube, instagram string) (*model.Account, error) {
	youtube = strings.TrimSpace(youtube)
	instagram = strings.TrimSpace(instagram)

	if err := s.verifyOwnHandles(ctx, youtube, instagram); err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateHandles(ctx, username, youtube, instagram); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: updating handles for %s: %w", username, err)
	}

	s.logger.Info("account handles updated", slog.String("username", username))
	return s.Profile(ctx, username)
}

func (s *AccountService) verifyOwnHandles(ctx context.Context, youtube, instagram string) error {
	checks := []struct {
		platform model.Platform
		handle   string
		field    string
	}{
		{model.PlatformYouTube, youtube, "youtube"},
		{model.PlatformInstagram, instagram, "instagram"},
	}
	for _, c := range checks {
		if c.handle == "" {
			continue
		}
		if v := s.verifier.Verify(ctx, c.platform, c.handle); !v.Verified {
			return apperror.ValidationFailed(c.field,
				fmt.Sprintf("%s handle %q could not be verified", c.platform.DisplayName(), c.handle))
		}
	}
	return nil
}

// validationError converts ozzo's per-field errors into one apperror,
// reporting the first field in alphabetical order.
func validationError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return apperror.ValidationFailed(fields[0], errs[fields[0]].Error())
}
