package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/sakif/socialpulse/internal/apperror"
	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/notifier"
	"github.com/sakif/socialpulse/internal/verifier"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeAccountRepo is an in-memory repository.AccountRepository.
type fakeAccountRepo struct {
	accounts map[string]*model.Account
	getErr   error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	if _, ok := f.accounts[a.Username]; ok {
		return apperror.Conflict("username", "username already exists")
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	copied := *a
	f.accounts[a.Username] = &copied
	return nil
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, apperror.NotFound("account", username)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccountRepo) UpdateHandles(_ context.Context, username, youtube, instagram string) error {
	a, ok := f.accounts[username]
	if !ok {
		return apperror.NotFound("account", username)
	}
	a.YouTubeHandle = youtube
	a.InstagramHandle = instagram
	return nil
}

func (f *fakeAccountRepo) SetLastSummaryAt(_ context.Context, username string, at time.Time) error {
	a, ok := f.accounts[username]
	if !ok {
		return apperror.NotFound("account", username)
	}
	a.LastSummaryAt = &at
	return nil
}

func (f *fakeAccountRepo) ListSummarized(context.Context) ([]model.Account, error) {
	var out []model.Account
	for _, a := range f.accounts {
		if a.LastSummaryAt != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// fakeVerifier verifies every handle in valid and rejects the rest.
type fakeVerifier struct {
	mu    sync.Mutex
	valid map[string]bool
	calls []string
}

func newFakeVerifier(valid ...string) *fakeVerifier {
	f := &fakeVerifier{valid: make(map[string]bool)}
	for _, h := range valid {
		f.valid[h] = true
	}
	return f
}

func (f *fakeVerifier) Verify(_ context.Context, platform model.Platform, handle string) verifier.Verification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(platform)+"/"+handle)
	v := verifier.Verification{Platform: platform, Handle: handle, Verified: f.valid[handle]}
	if !v.Verified {
		v.Err = errors.New("channel not found")
	}
	return v
}

func newTestAccountService(t *testing.T, repo *fakeAccountRepo, v *fakeVerifier) *AccountService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-32-bytes-long!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return NewAccountService(repo, auth.NewPasswordServiceWithCost(4), tokens, v, nil, newTestLogger())
}

func validInput() RegisterInput {
	return RegisterInput{
		Username: "alice",
		Password: "correct horse",
		Email:    "alice@example.com",
	}
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeAccountRepo()
	v := newFakeVerifier("@alice")
	svc := newTestAccountService(t, repo, v)

	in := validInput()
	in.Username = "  alice  "
	in.YouTube = "@alice"

	account, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if account.Username != "alice" {
		t.Errorf("Username = %q, want trimmed %q", account.Username, "alice")
	}
	if account.YouTubeHandle != "@alice" {
		t.Errorf("YouTubeHandle = %q", account.YouTubeHandle)
	}
	if account.PasswordHash == "" || account.PasswordHash == in.Password {
		t.Error("password must be stored as a hash")
	}
	if len(v.calls) != 1 || v.calls[0] != "youtube/@alice" {
		t.Errorf("verifier calls = %v", v.calls)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RegisterInput)
		wantField string
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "" }, "username"},
		{"short username", func(in *RegisterInput) { in.Username = "al" }, "username"},
		{"username with spaces", func(in *RegisterInput) { in.Username = "al ice" }, "username"},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, "password"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAccountService(t, newFakeAccountRepo(), newFakeVerifier())
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

// fakeSender records messages or fails every send with err.
type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newConfirmingAccountService(t *testing.T, repo *fakeAccountRepo, sender *fakeSender) *AccountService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-32-bytes-long!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	confirmer := notifier.New(repo, sender, "reports@example.com", newTestLogger())
	return NewAccountService(repo, auth.NewPasswordServiceWithCost(4), tokens, newFakeVerifier(), confirmer, newTestLogger())
}

func TestRegister_ConfirmationEmailSent(t *testing.T) {
	repo := newFakeAccountRepo()
	sender := &fakeSender{}
	svc := newConfirmingAccountService(t, repo, sender)

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if to := sender.sent[0].GetTo(); len(to) != 1 || to[0].Address != "alice@example.com" {
		t.Errorf("To = %v", to)
	}
}

func TestRegister_UndeliverableEmailRejected(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newConfirmingAccountService(t, repo, &fakeSender{err: errors.New("550 no such user")})

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "email" {
		t.Errorf("Field = %q, want email", appErr.Field)
	}
	if len(repo.accounts) != 0 {
		t.Error("account must not be created when the email cannot be confirmed")
	}
}

func TestRegister_UnverifiedHandleRejected(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(t, repo, newFakeVerifier())

	in := validInput()
	in.Instagram = "ghost.account"

	_, err := svc.Register(context.Background(), in)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
	if len(repo.accounts) != 0 {
		t.Error("account must not be created when a handle fails verification")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo(), newFakeVerifier())

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Register() error = %v, want ErrConflict", err)
	}
	if err.Error() != "username already exists" {
		t.Errorf("message = %q", err.Error())
	}
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo(), newFakeVerifier())
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("valid credentials issue a token for the username", func(t *testing.T) {
		res, err := svc.Login(context.Background(), "alice", "correct horse")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		subject, err := svc.tokens.Validate(res.Token)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if subject != "alice" {
			t.Errorf("subject = %q, want alice", subject)
		}
	})

	rejected := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "battery staple"},
		{"unknown user", "bob", "correct horse"},
		{"empty password", "alice", ""},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
			}
			if err.Error() != "invalid username or password" {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestLogin_RepositoryFailure(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.getErr = errors.New("database is locked")
	svc := newTestAccountService(t, repo, newFakeVerifier())

	_, err := svc.Login(context.Background(), "alice", "correct horse")
	if err == nil || errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want a wrapped infrastructure error", err)
	}
}

// =========================================================================
// PROFILE / HANDLES
// =========================================================================

func TestUpdateHandles(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(t, repo, newFakeVerifier("@alice", "alice.ig"))
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	account, err := svc.UpdateHandles(context.Background(), "alice", " @alice ", "alice.ig")
	if err != nil {
		t.Fatalf("UpdateHandles() error = %v", err)
	}
	if account.YouTubeHandle != "@alice" || account.InstagramHandle != "alice.ig" {
		t.Errorf("handles = %q / %q", account.YouTubeHandle, account.InstagramHandle)
	}

	if _, err := svc.UpdateHandles(context.Background(), "alice", "@nobody", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateHandles(unverified) error = %v, want ErrValidation", err)
	}
	if repo.accounts["alice"].YouTubeHandle != "@alice" {
		t.Error("a rejected update must not change the stored handles")
	}
}

func TestProfile_NotFound(t *testing.T) {
	svc := newTestAccountService(t, newFakeAccountRepo(), newFakeVerifier())

	_, err := svc.Profile(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Profile() error = %v, want ErrNotFound", err)
	}
}
