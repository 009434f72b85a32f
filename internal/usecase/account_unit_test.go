package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/juvenxu/account-service/internal/core/domain"
	"github.com/juvenxu/account-service/internal/infra/security"
	"github.com/juvenxu/account-service/internal/repository"
)

type mockAccountRepository struct {
	accounts map[string]domain.Account

	createErr   error
	createCalls int

	readErr   error
	readCalls int

	updateErr   error
	updateCalls int

	deleteErr   error
	deleteCalls int
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{accounts: make(map[string]domain.Account)}
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.accounts[account.ID]; exists {
		return repository.ErrDuplicate
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) Read(_ context.Context, id string) (*domain.Account, error) {
	m.readCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := account
	return &copied, nil
}

func (m *mockAccountRepository) Update(_ context.Context, account domain.Account) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) Delete(_ context.Context, id string) error {
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.accounts, id)
	return nil
}

type mockActivationRepository struct {
	tokens map[string]domain.ActivationToken

	createErr   error
	createCalls int

	consumeCalls int
}

func newMockActivationRepository() *mockActivationRepository {
	return &mockActivationRepository{tokens: make(map[string]domain.ActivationToken)}
}

func (m *mockActivationRepository) Create(_ context.Context, token domain.ActivationToken) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.tokens[token.ID] = token
	return nil
}

func (m *mockActivationRepository) GetByHash(_ context.Context, hash string) (*domain.ActivationToken, error) {
	for _, token := range m.tokens {
		if token.TokenHash == hash {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockActivationRepository) Consume(_ context.Context, id string) error {
	m.consumeCalls++
	token, ok := m.tokens[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	usedAt := token.CreatedAt
	token.UsedAt = &usedAt
	m.tokens[id] = token
	return nil
}

type stubCaptchaService struct {
	key    string
	answer string

	generateErr   error
	generateCalls int
	verifyCalls   int
}

func (s *stubCaptchaService) Generate(_ context.Context) (string, []byte, error) {
	s.generateCalls++
	if s.generateErr != nil {
		return "", nil, s.generateErr
	}
	return s.key, []byte("png"), nil
}

func (s *stubCaptchaService) Verify(_ context.Context, key, value string) bool {
	s.verifyCalls++
	return key == s.key && value == s.answer
}

type mockMailer struct {
	sendErr   error
	sendCalls int

	lastTo      string
	lastSubject string
	lastBody    string
}

func (m *mockMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.sendCalls++
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = htmlBody
	return m.sendErr
}

type mockAccountEventPublisher struct {
	createdCalls   int
	activatedCalls int
	deletedCalls   int

	lastCreated   domain.AccountCreatedEvent
	lastActivated domain.AccountActivatedEvent
	lastDeleted   domain.AccountDeletedEvent
}

func (m *mockAccountEventPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	m.createdCalls++
	m.lastCreated = event
	return nil
}

func (m *mockAccountEventPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	m.activatedCalls++
	m.lastActivated = event
	return nil
}

func (m *mockAccountEventPublisher) PublishAccountDeleted(_ context.Context, event domain.AccountDeletedEvent) error {
	m.deletedCalls++
	m.lastDeleted = event
	return nil
}

type lifecycleFixture struct {
	accounts    *mockAccountRepository
	activations *mockActivationRepository
	captcha     *stubCaptchaService
	mailer      *mockMailer
	publisher   *mockAccountEventPublisher
	service     *AccountService
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		accounts:    newMockAccountRepository(),
		activations: newMockActivationRepository(),
		captcha:     &stubCaptchaService{key: "captcha-key", answer: "12345"},
		mailer:      &mockMailer{},
		publisher:   &mockAccountEventPublisher{},
	}
	f.service = NewAccountService(f.accounts, f.activations, f.captcha, f.mailer, f.publisher)
	return f
}

func signUpRequest() domain.SignUpRequest {
	return domain.SignUpRequest{
		ID:                   "juven",
		Name:                 "Juven Xu",
		Email:                "juven@example.com",
		Password:             "admin123",
		ConfirmPassword:      "admin123",
		CaptchaKey:           "captcha-key",
		CaptchaValue:         "12345",
		ActivationServiceURL: "http://localhost:8080/api/v1/account/activate",
	}
}

func codeFromLink(t *testing.T, link string) string {
	t.Helper()
	idx := strings.LastIndex(link, "=")
	if idx < 0 || idx == len(link)-1 {
		t.Fatalf("activation link carries no code: %q", link)
	}
	return link[idx+1:]
}

func TestAccountService_GenerateCaptcha(t *testing.T) {
	f := newLifecycleFixture()

	key, image, err := f.service.GenerateCaptcha(context.Background())
	if err != nil {
		t.Fatalf("GenerateCaptcha returned error: %v", err)
	}
	if key != "captcha-key" {
		t.Fatalf("unexpected captcha key: %s", key)
	}
	if len(image) == 0 {
		t.Fatalf("expected rendered image bytes")
	}
}

func TestAccountService_GenerateCaptchaFailure(t *testing.T) {
	f := newLifecycleFixture()
	f.captcha.generateErr = errors.New("driver failure")

	if _, _, err := f.service.GenerateCaptcha(context.Background()); !errors.Is(err, ErrCaptchaGeneration) {
		t.Fatalf("expected ErrCaptchaGeneration, got %v", err)
	}
}

func TestAccountService_SignUp(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if f.accounts.createCalls != 1 {
		t.Fatalf("expected Create to be called once, got %d", f.accounts.createCalls)
	}

	stored, ok := f.accounts.accounts["juven"]
	if !ok {
		t.Fatalf("expected account to be persisted")
	}
	if stored.Activated {
		t.Fatalf("expected account to be persisted in pending state")
	}
	if stored.PasswordHash == "admin123" {
		t.Fatalf("expected password to be stored hashed")
	}
	if ok, err := security.VerifyPassword("admin123", stored.PasswordHash); err != nil || !ok {
		t.Fatalf("expected stored hash to verify the original password")
	}

	if f.mailer.sendCalls != 1 {
		t.Fatalf("expected exactly one activation email, got %d", f.mailer.sendCalls)
	}
	if f.mailer.lastTo != "juven@example.com" {
		t.Fatalf("unexpected recipient: %s", f.mailer.lastTo)
	}
	if f.mailer.lastSubject != "Please Activate Your Account" {
		t.Fatalf("unexpected subject: %s", f.mailer.lastSubject)
	}

	code := codeFromLink(t, f.mailer.lastBody)
	if _, err := f.activations.GetByHash(context.Background(), security.HashToken(code)); err != nil {
		t.Fatalf("expected emailed code to be stored hashed: %v", err)
	}

	if f.publisher.createdCalls != 1 {
		t.Fatalf("expected one created event, got %d", f.publisher.createdCalls)
	}
	if f.publisher.lastCreated.AccountID != "juven" {
		t.Fatalf("unexpected event account id: %s", f.publisher.lastCreated.AccountID)
	}
}

func TestAccountService_SignUpWrongCaptcha(t *testing.T) {
	f := newLifecycleFixture()

	req := signUpRequest()
	req.CaptchaValue = "99999"

	if err := f.service.SignUp(context.Background(), req); !errors.Is(err, ErrInvalidCaptcha) {
		t.Fatalf("expected ErrInvalidCaptcha, got %v", err)
	}

	if f.accounts.createCalls != 0 {
		t.Fatalf("expected no persistence attempt, got %d", f.accounts.createCalls)
	}
	if f.mailer.sendCalls != 0 {
		t.Fatalf("expected no email, got %d", f.mailer.sendCalls)
	}
}

func TestAccountService_SignUpPasswordMismatch(t *testing.T) {
	f := newLifecycleFixture()

	req := signUpRequest()
	req.ConfirmPassword = "admin456"

	if err := f.service.SignUp(context.Background(), req); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	if f.accounts.createCalls != 0 {
		t.Fatalf("expected no persistence attempt, got %d", f.accounts.createCalls)
	}
	if f.mailer.sendCalls != 0 {
		t.Fatalf("expected no email, got %d", f.mailer.sendCalls)
	}
}

func TestAccountService_SignUpDuplicateID(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("first SignUp returned error: %v", err)
	}

	original := f.accounts.accounts["juven"]

	req := signUpRequest()
	req.Name = "Imposter"
	if err := f.service.SignUp(context.Background(), req); !errors.Is(err, ErrAccountCreation) {
		t.Fatalf("expected ErrAccountCreation, got %v", err)
	}

	if f.accounts.accounts["juven"].Name != original.Name {
		t.Fatalf("expected original account to be left unchanged")
	}
	if f.mailer.sendCalls != 1 {
		t.Fatalf("expected no second email, got %d", f.mailer.sendCalls)
	}
}

func TestAccountService_SignUpPersistenceFailure(t *testing.T) {
	f := newLifecycleFixture()
	f.accounts.createErr = errors.New("connection reset")

	if err := f.service.SignUp(context.Background(), signUpRequest()); !errors.Is(err, ErrAccountCreation) {
		t.Fatalf("expected ErrAccountCreation, got %v", err)
	}
	if f.mailer.sendCalls != 0 {
		t.Fatalf("expected no email after persistence failure, got %d", f.mailer.sendCalls)
	}
}

func TestAccountService_SignUpTokenStorageFailure(t *testing.T) {
	f := newLifecycleFixture()
	f.activations.createErr = errors.New("connection reset")

	if err := f.service.SignUp(context.Background(), signUpRequest()); !errors.Is(err, ErrAccountCreation) {
		t.Fatalf("expected ErrAccountCreation, got %v", err)
	}
	if f.mailer.sendCalls != 0 {
		t.Fatalf("expected no email after token storage failure, got %d", f.mailer.sendCalls)
	}
}

func TestAccountService_SignUpEmailFailureKeepsRecord(t *testing.T) {
	f := newLifecycleFixture()
	f.mailer.sendErr = errors.New("smtp unreachable")

	if err := f.service.SignUp(context.Background(), signUpRequest()); !errors.Is(err, ErrAccountCreation) {
		t.Fatalf("expected ErrAccountCreation, got %v", err)
	}

	// The persisted record survives the notification fault; only the reported
	// outcome collapses to a creation failure.
	if _, ok := f.accounts.accounts["juven"]; !ok {
		t.Fatalf("expected account to remain persisted after email failure")
	}
	if f.publisher.createdCalls != 0 {
		t.Fatalf("expected no created event on failed sign-up, got %d", f.publisher.createdCalls)
	}
}

func TestAccountService_SignUpTwiceSendsOneEmailEach(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("first SignUp returned error: %v", err)
	}

	second := signUpRequest()
	second.ID = "mcgrady"
	second.Email = "mcgrady@example.com"
	if err := f.service.SignUp(context.Background(), second); err != nil {
		t.Fatalf("second SignUp returned error: %v", err)
	}

	if f.mailer.sendCalls != 2 {
		t.Fatalf("expected one email per sign-up, got %d", f.mailer.sendCalls)
	}
	if f.mailer.lastTo != "mcgrady@example.com" {
		t.Fatalf("unexpected second recipient: %s", f.mailer.lastTo)
	}
}

func TestAccountService_Activate(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	code := codeFromLink(t, f.mailer.lastBody)

	if err := f.service.Activate(context.Background(), code); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	if !f.accounts.accounts["juven"].Activated {
		t.Fatalf("expected account to be activated")
	}
	if f.activations.consumeCalls != 1 {
		t.Fatalf("expected token to be consumed once, got %d", f.activations.consumeCalls)
	}
	if f.publisher.activatedCalls != 1 {
		t.Fatalf("expected one activated event, got %d", f.publisher.activatedCalls)
	}
}

func TestAccountService_ActivateUnknownCode(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.Activate(context.Background(), "no-such-code"); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode, got %v", err)
	}
}

func TestAccountService_ActivateEmptyCode(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.Activate(context.Background(), "   "); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode, got %v", err)
	}
}

func TestAccountService_ActivateTwice(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	code := codeFromLink(t, f.mailer.lastBody)

	if err := f.service.Activate(context.Background(), code); err != nil {
		t.Fatalf("first Activate returned error: %v", err)
	}
	if err := f.service.Activate(context.Background(), code); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode on reuse, got %v", err)
	}
}

func TestAccountService_ActivateExpiredCode(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	code := codeFromLink(t, f.mailer.lastBody)

	f.service.WithClock(func() time.Time {
		return time.Now().Add(25 * time.Hour)
	})

	if err := f.service.Activate(context.Background(), code); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode for expired code, got %v", err)
	}
	if f.accounts.accounts["juven"].Activated {
		t.Fatalf("expected account to stay pending")
	}
}

func TestAccountService_ActivationTTLConfigurable(t *testing.T) {
	f := newLifecycleFixture()
	f.service.WithActivationTTL(time.Hour)

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	code := codeFromLink(t, f.mailer.lastBody)

	token, err := f.activations.GetByHash(context.Background(), security.HashToken(code))
	if err != nil {
		t.Fatalf("expected stored token: %v", err)
	}
	if got := token.ExpiresAt.Sub(token.CreatedAt); got != time.Hour {
		t.Fatalf("expected 1h validity window, got %v", got)
	}

	f.service.WithClock(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	})

	if err := f.service.Activate(context.Background(), code); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode past the configured TTL, got %v", err)
	}
}

func TestAccountService_LoginBeforeActivation(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	err := f.service.Login(context.Background(), "juven", "admin123")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected login refusals to share the login failure kind")
	}
}

func TestAccountService_LoginUnknownAccount(t *testing.T) {
	f := newLifecycleFixture()

	err := f.service.Login(context.Background(), "ghost", "admin123")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected login refusals to share the login failure kind")
	}
}

func TestAccountService_LoginLifecycle(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	code := codeFromLink(t, f.mailer.lastBody)
	if err := f.service.Activate(context.Background(), code); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	if err := f.service.Login(context.Background(), "juven", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	err := f.service.Login(context.Background(), "juven", "admin456")
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect password") {
		t.Fatalf("expected distinguishing message, got %q", err.Error())
	}
}

func TestAccountService_Delete(t *testing.T) {
	f := newLifecycleFixture()

	if err := f.service.SignUp(context.Background(), signUpRequest()); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if err := f.service.Delete(context.Background(), "juven"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, ok := f.accounts.accounts["juven"]; ok {
		t.Fatalf("expected account to be removed")
	}
	if f.publisher.deletedCalls != 1 {
		t.Fatalf("expected one deleted event, got %d", f.publisher.deletedCalls)
	}

	// Deleting an absent id is a no-op, not an error.
	if err := f.service.Delete(context.Background(), "juven"); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
}

func TestBuildActivationLink(t *testing.T) {
	link := buildActivationLink("http://localhost:8080/activate", "abc123")
	if link != "http://localhost:8080/activate?key=abc123" {
		t.Fatalf("unexpected link: %s", link)
	}

	link = buildActivationLink("http://localhost:8080/activate?lang=en", "abc123")
	if link != "http://localhost:8080/activate?lang=en&key=abc123" {
		t.Fatalf("unexpected link with existing query: %s", link)
	}

	// Receivers extract the code after the final '='.
	if got := link[strings.LastIndex(link, "=")+1:]; got != "abc123" {
		t.Fatalf("expected code after final '=', got %s", got)
	}
}
