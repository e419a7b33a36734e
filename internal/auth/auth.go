// Package auth implements passwordless email-link sign-in and bearer
// sessions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abhisek/tutorly/internal/store"
)

// Sign-in failures with their own user-facing message.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUnauthorizedDomain = errors.New("email domain is not allowed")
	ErrInvalidLink        = errors.New("sign-in link is invalid or already used")
	ErrLinkExpired        = errors.New("sign-in link has expired")
	ErrEmailMismatch      = errors.New("email does not match the sign-in link")
	ErrInvalidSession     = errors.New("session is invalid or expired")
)

// UserMessage maps an auth error to text for the learner.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrUnauthorizedDomain):
		return "This email domain is not authorized for sign-in. Please use your school email."
	case errors.Is(err, ErrInvalidLink):
		return "This sign-in link is invalid or has already been used. Please request a new one."
	case errors.Is(err, ErrLinkExpired):
		return "This sign-in link has expired. Please request a new one."
	case errors.Is(err, ErrEmailMismatch):
		return "Please open the link with the same email address you used to request it."
	case errors.Is(err, ErrInvalidSession):
		return "Your session has ended. Please sign in again."
	default:
		return "Sign-in failed. Please try again."
	}
}

// Config controls link and session lifetimes.
type Config struct {
	// BaseURL is where the sign-in link points; the token is appended as
	// the "token" query parameter of BaseURL + "/auth/complete".
	BaseURL string

	// AllowedDomains restricts sign-in to these email domains when set.
	AllowedDomains []string

	LinkTTL    time.Duration
	SessionTTL time.Duration
}

// DefaultConfig returns a 15-minute link and a 72-hour session.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		LinkTTL:    15 * time.Minute,
		SessionTTL: 72 * time.Hour,
	}
}

// User is an authenticated learner.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignedIn is the result of a completed sign-in.
type SignedIn struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service issues sign-in links and sessions.
type Service struct {
	repo   store.AuthRepo
	mailer Mailer
	cfg    Config
	now    func() time.Time
}

// NewService creates an auth service.
func NewService(repo store.AuthRepo, mailer Mailer, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = def.LinkTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	return &Service{repo: repo, mailer: mailer, cfg: cfg, now: time.Now}
}

// UserIDFor derives the stable user id of an email address.
func UserIDFor(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalizeEmail(email))).String()
}

// SendSignInLink records a one-time link for email and mails it. The
// pending email is stored with the link so it can be recovered on
// completion.
func (s *Service) SendSignInLink(ctx context.Context, email string) error {
	email, err := s.checkEmail(email)
	if err != nil {
		return err
	}

	secret, err := randomHex(32)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash link secret: %w", err)
	}

	link := store.SignInLink{
		ID:         uuid.NewString(),
		SecretHash: string(hash),
		Email:      email,
		ExpiresAt:  s.now().Add(s.cfg.LinkTTL),
		CreatedAt:  s.now(),
	}
	if err := s.repo.SaveLink(ctx, link); err != nil {
		return err
	}

	token := link.ID + "." + secret
	msg := Message{
		To:      email,
		Subject: "Sign in to Tutorly",
		Body: fmt.Sprintf(`Hello,

Use the link below to sign in to Tutorly:
%s

The link expires in %d minutes and works once.

If you did not ask to sign in, ignore this email.`,
			s.linkURL(token), int(s.cfg.LinkTTL.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		_ = s.repo.DeleteLink(ctx, link.ID)
		return fmt.Errorf("send sign-in email: %w", err)
	}
	return nil
}

// CompleteSignIn redeems a link token. When email is empty the address
// stored with the link is used. The link is consumed on success.
func (s *Service) CompleteSignIn(ctx context.Context, token, email string) (*SignedIn, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidLink
	}

	link, err := s.repo.GetLink(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidLink
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(link.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidLink
	}
	if !s.now().Before(link.ExpiresAt) {
		_ = s.repo.DeleteLink(ctx, id)
		return nil, ErrLinkExpired
	}
	if email != "" && normalizeEmail(email) != link.Email {
		return nil, ErrEmailMismatch
	}

	if err := s.repo.DeleteLink(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, err
	}

	sessionToken, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	user := User{ID: UserIDFor(link.Email), Email: link.Email}
	expires := s.now().Add(s.cfg.SessionTTL)
	err = s.repo.SaveSession(ctx, store.Session{
		TokenHash: hashToken(sessionToken),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: expires,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &SignedIn{User: user, Token: sessionToken, ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	sess, err := s.repo.GetSession(ctx, hashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, sess.TokenHash)
		return nil, ErrInvalidSession
	}
	return &User{ID: sess.UserID, Email: sess.Email}, nil
}

// SignOut ends the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, hashToken(token))
}

// Cleanup removes expired links and sessions.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *Service) checkEmail(email string) (string, error) {
	email = normalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	if len(s.cfg.AllowedDomains) > 0 {
		_, domain, _ := strings.Cut(email, "@")
		if !slices.ContainsFunc(s.cfg.AllowedDomains, func(d string) bool {
			return strings.EqualFold(strings.TrimSpace(d), domain)
		}) {
			return "", ErrUnauthorizedDomain
		}
	}
	return email, nil
}

func (s *Service) linkURL(token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/auth/complete?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
