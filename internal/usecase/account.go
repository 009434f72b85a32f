package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juvenxu/account-service/internal/core/domain"
	"github.com/juvenxu/account-service/internal/core/port"
	"github.com/juvenxu/account-service/internal/infra/security"
	"github.com/juvenxu/account-service/internal/repository"
)

const (
	activationSubject     = "Please Activate Your Account"
	activationQueryParam  = "key"
	defaultActivationTTL  = 24 * time.Hour
	activationTokenLength = 32
)

var (
	// ErrCaptchaGeneration indicates the challenge image could not be produced.
	ErrCaptchaGeneration = errors.New("unable to generate captcha")
	// ErrInvalidCaptcha indicates the submitted challenge answer did not match.
	ErrInvalidCaptcha = errors.New("incorrect captcha")
	// ErrPasswordMismatch indicates the password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrAccountCreation covers every persistence or notification fault during
	// sign-up. Callers cannot distinguish a duplicate id from a storage or
	// email failure; that collapse is part of the contract.
	ErrAccountCreation = errors.New("unable to create account")
	// ErrInvalidActivationCode indicates the code is unknown, already used,
	// expired, or no longer names a live account.
	ErrInvalidActivationCode = errors.New("invalid account activation ID")
	// ErrLoginFailed is the shared kind for every login refusal. The wrapped
	// variants below carry the distinguishing message.
	ErrLoginFailed = errors.New("login failed")
)

var (
	// ErrAccountNotFound refuses login for an id with no account.
	ErrAccountNotFound = fmt.Errorf("%w: account not found", ErrLoginFailed)
	// ErrAccountDisabled refuses login before activation.
	ErrAccountDisabled = fmt.Errorf("%w: account is disabled", ErrLoginFailed)
	// ErrIncorrectPassword refuses login on credential mismatch.
	ErrIncorrectPassword = fmt.Errorf("%w: Incorrect password", ErrLoginFailed)
)

// AccountService owns the account lifecycle state machine: sign-up with a
// solved captcha, activation by emailed code, and login. All state lives
// behind the injected collaborators; the service itself is stateless and
// safe for concurrent use.
type AccountService struct {
	accounts    port.AccountRepository
	activations port.ActivationRepository
	captcha     port.CaptchaService
	mailer      port.Mailer
	publisher     port.EventPublisher
	logger        *zap.Logger
	now           func() time.Time
	activationTTL time.Duration
}

// NewAccountService constructs the lifecycle orchestrator.
func NewAccountService(
	accounts port.AccountRepository,
	activations port.ActivationRepository,
	captcha port.CaptchaService,
	mailer port.Mailer,
	publisher port.EventPublisher,
) *AccountService {
	return &AccountService{
		accounts:      accounts,
		activations:   activations,
		captcha:       captcha,
		mailer:        mailer,
		publisher:     publisher,
		logger:        zap.NewNop(),
		now:           time.Now,
		activationTTL: defaultActivationTTL,
	}
}

// WithLogger attaches a structured logger.
func (s *AccountService) WithLogger(log *zap.Logger) *AccountService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithActivationTTL overrides how long issued activation codes stay valid.
func (s *AccountService) WithActivationTTL(ttl time.Duration) *AccountService {
	if ttl > 0 {
		s.activationTTL = ttl
	}
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *AccountService) WithClock(clock func() time.Time) *AccountService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// GenerateCaptcha issues a fresh challenge key and its rendered image.
func (s *AccountService) GenerateCaptcha(ctx context.Context) (string, []byte, error) {
	key, image, err := s.captcha.Generate(ctx)
	if err != nil {
		s.logger.Error("captcha generation failed", zap.Error(err))
		return "", nil, ErrCaptchaGeneration
	}
	return key, image, nil
}

// SignUp validates the request, persists the account in pending state, and
// emails the activation link. Checks run in order and short-circuit on the
// first failure.
func (s *AccountService) SignUp(ctx context.Context, req domain.SignUpRequest) error {
	if !s.captcha.Verify(ctx, req.CaptchaKey, req.CaptchaValue) {
		return ErrInvalidCaptcha
	}

	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return ErrAccountCreation
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           req.ID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Activated:    false,
		CreatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		s.logger.Warn("create account failed",
			zap.String("account_id", req.ID),
			zap.Error(err),
		)
		return ErrAccountCreation
	}

	code, err := s.issueActivationCode(ctx, account.ID, now)
	if err != nil {
		s.logger.Error("issue activation code failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return ErrAccountCreation
	}

	link := buildActivationLink(req.ActivationServiceURL, code)
	if err := s.mailer.Send(ctx, req.Email, activationSubject, link); err != nil {
		// The record stays persisted; the caller only learns that sign-up
		// failed as a whole.
		s.logger.Error("send activation email failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return ErrAccountCreation
	}

	s.publishCreated(ctx, account)
	return nil
}

// Activate redeems an activation code and flips the account to active.
// A code is consumable exactly once.
func (s *AccountService) Activate(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidActivationCode
	}

	hash := security.HashToken(code)
	token, err := s.activations.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidActivationCode
		}
		return fmt.Errorf("lookup activation token: %w", err)
	}

	now := s.now().UTC()
	if token.Consumed() || token.Expired(now) {
		return ErrInvalidActivationCode
	}

	account, err := s.accounts.Read(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidActivationCode
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	account.Activated = true
	if err := s.accounts.Update(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The account vanished between lookup and update; from the
			// caller's perspective the code no longer names a pending account.
			return ErrInvalidActivationCode
		}
		return fmt.Errorf("activate account: %w", err)
	}

	if err := s.activations.Consume(ctx, token.ID); err != nil {
		return fmt.Errorf("consume activation token: %w", err)
	}

	s.publishActivated(ctx, account.ID, now)
	return nil
}

// Login authorizes an activated account by id and password.
func (s *AccountService) Login(ctx context.Context, id, password string) error {
	account, err := s.accounts.Read(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if !account.Activated {
		return ErrAccountDisabled
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrIncorrectPassword
	}

	return nil
}

// Read returns the account for the given id, or repository.ErrNotFound.
func (s *AccountService) Read(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.Read(ctx, id)
}

// Delete removes an account by id. Deletion is an administrative operation
// outside the sign-up, activation, and login flows; deleting an absent id is
// a no-op.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if s.publisher != nil {
		event := domain.AccountDeletedEvent{
			EventID:   uuid.NewString(),
			AccountID: id,
			DeletedAt: s.now().UTC(),
		}
		if err := s.publisher.PublishAccountDeleted(ctx, event); err != nil {
			s.logger.Warn("publish account deleted failed", zap.Error(err))
		}
	}

	return nil
}

func (s *AccountService) issueActivationCode(ctx context.Context, accountID string, now time.Time) (string, error) {
	raw, err := security.GenerateSecureToken(activationTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate activation code: %w", err)
	}

	token := domain.ActivationToken{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.activationTTL),
	}

	if err := s.activations.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store activation token: %w", err)
	}

	return raw, nil
}

func (s *AccountService) publishCreated(ctx context.Context, account domain.Account) {
	if s.publisher == nil {
		return
	}
	event := domain.AccountCreatedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}
	if err := s.publisher.PublishAccountCreated(ctx, event); err != nil {
		s.logger.Warn("publish account created failed", zap.Error(err))
	}
}

func (s *AccountService) publishActivated(ctx context.Context, accountID string, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.AccountActivatedEvent{
		EventID:     uuid.NewString(),
		AccountID:   accountID,
		ActivatedAt: at,
	}
	if err := s.publisher.PublishAccountActivated(ctx, event); err != nil {
		s.logger.Warn("publish account activated failed", zap.Error(err))
	}
}

// buildActivationLink appends the activation code to the caller-supplied base
// URL. The code always ends up after the final "=" so receivers can extract
// it with a single split.
func buildActivationLink(baseURL, code string) string {
	separator := "?"
	if strings.Contains(baseURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s%s=%s", baseURL, separator, activationQueryParam, code)
}
