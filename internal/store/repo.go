package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/tutorly/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
	Failed  bool      // only unsuccessful requests
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLMRequestEventData with its ordering keys.
type LLMRequestEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageSummary aggregates LLM events by a grouping key (purpose or model).
type UsageSummary struct {
	Key          string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single event by row id, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates token use and latency per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]UsageSummary, error)

	// LLMUsageByModel aggregates token use and latency per model.
	LLMUsageByModel(ctx context.Context) ([]UsageSummary, error)
}

// DocumentRepo persists per-user documents: conversations and the profile.
// Implementations must round-trip model.ChatMessage losslessly.
type DocumentRepo interface {
	// LoadConversations returns every saved conversation of a user.
	LoadConversations(ctx context.Context, userID string) (map[model.Subject][]model.ChatMessage, error)

	// SaveConversation replaces the stored history of one subject.
	SaveConversation(ctx context.Context, userID string, subject model.Subject, msgs []model.ChatMessage) error

	// LoadProfile returns the user's profile, or ErrNotFound.
	LoadProfile(ctx context.Context, userID string) (*model.Profile, error)

	// SaveProfile upserts the profile keyed by its UserID.
	SaveProfile(ctx context.Context, profile model.Profile) error
}

// QuizResult records a finished quiz.
type QuizResult struct {
	ID            int64
	UserID        string
	Subject       model.Subject
	Score         int
	Total         int
	FlaggedTopics []string
	FinishedAt    time.Time
}

// QuizResultRepo keeps the history of finished quizzes.
type QuizResultRepo interface {
	// Save stores a new result.
	Save(ctx context.Context, result *QuizResult) error

	// Recent returns up to limit results for a user, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]QuizResult, error)

	// Prune deletes all but the keep most recent results of a user.
	Prune(ctx context.Context, userID string, keep int) error
}

// SignInLink is a pending email sign-in. Only a hash of the link secret is
// stored.
type SignInLink struct {
	ID         string
	SecretHash string
	Email      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Session is a signed-in session keyed by a hash of its bearer token.
type Session struct {
	TokenHash string
	UserID    string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthRepo stores sign-in links and sessions.
type AuthRepo interface {
	SaveLink(ctx context.Context, link SignInLink) error
	// GetLink returns the link with id, or ErrNotFound.
	GetLink(ctx context.Context, id string) (*SignInLink, error)
	// DeleteLink removes the link with id. It returns ErrNotFound when no
	// link was removed, so exactly one caller can consume a link.
	DeleteLink(ctx context.Context, id string) error

	SaveSession(ctx context.Context, session Session) error
	// GetSession returns the session with tokenHash, or ErrNotFound.
	GetSession(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error

	// DeleteExpired removes links and sessions that expired before now and
	// returns how many rows went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
