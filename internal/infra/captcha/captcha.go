package captcha

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mojocn/base64Captcha"
	"go.uber.org/zap"
)

const (
	defaultWidth     = 240
	defaultHeight    = 80
	defaultLength    = 5
	defaultNoise     = 0
	defaultTTL       = 10 * time.Minute
	defaultAlphabet  = "1234567890"
	defaultShowLines = base64Captcha.OptionShowHollowLine
)

// Options configures challenge rendering and lifetime.
type Options struct {
	Width    int
	Height   int
	Length   int
	Alphabet string
	TTL      time.Duration
}

// AnswerStore keeps the expected answer for each issued challenge key.
type AnswerStore interface {
	Set(ctx context.Context, key, answer string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service issues and verifies visual challenges. It implements
// port.CaptchaService backed by a pluggable answer store.
type Service struct {
	driver *base64Captcha.DriverString
	store  AnswerStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewService constructs a challenge service rendering string captchas.
func NewService(store AnswerStore, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultHeight
	}
	length := opts.Length
	if length <= 0 {
		length = defaultLength
	}
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = defaultAlphabet
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	driver := base64Captcha.NewDriverString(
		height,
		width,
		defaultNoise,
		defaultShowLines,
		length,
		alphabet,
		nil,
		nil,
		nil,
	).ConvertFonts()

	return &Service{
		driver: driver,
		store:  store,
		ttl:    ttl,
		logger: log,
	}
}

// Generate produces a fresh challenge key and its rendered image bytes.
func (s *Service) Generate(ctx context.Context) (string, []byte, error) {
	key, content, answer := s.driver.GenerateIdQuestionAnswer()

	item, err := s.driver.DrawCaptcha(content)
	if err != nil {
		return "", nil, fmt.Errorf("draw captcha: %w", err)
	}

	var buf bytes.Buffer
	if _, err := item.WriteTo(&buf); err != nil {
		return "", nil, fmt.Errorf("encode captcha image: %w", err)
	}

	if err := s.store.Set(ctx, key, answer, s.ttl); err != nil {
		return "", nil, fmt.Errorf("store captcha answer: %w", err)
	}

	return key, buf.Bytes(), nil
}

// Verify reports whether value matches the answer stored for key. The match
// is exact with no normalization. A successful verification consumes the
// key; failed attempts leave it valid until it expires.
func (s *Service) Verify(ctx context.Context, key, value string) bool {
	if key == "" || value == "" {
		return false
	}

	answer, err := s.store.Get(ctx, key)
	if err != nil {
		return false
	}

	if answer != value {
		return false
	}

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("consume captcha key failed", zap.String("key", key), zap.Error(err))
	}

	return true
}
