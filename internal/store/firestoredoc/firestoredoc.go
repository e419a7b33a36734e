// Package firestoredoc stores conversations and profiles in Cloud Firestore.
//
// Layout: users/{uid} holds the profile and
// users/{uid}/conversations/{subject} holds one subject's history.
package firestoredoc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/store"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
)

type conversationDoc struct {
	Subject   string              `firestore:"subject"`
	Messages  []model.ChatMessage `firestore:"messages"`
	UpdatedAt time.Time           `firestore:"updatedAt"`
}

// Repo implements store.DocumentRepo on Firestore.
type Repo struct {
	client *firestore.Client
}

var _ store.DocumentRepo = (*Repo)(nil)

// New connects to projectID. With credentialsFile empty the default
// application credentials (or FIRESTORE_EMULATOR_HOST) are used.
func New(ctx context.Context, projectID, credentialsFile string) (*Repo, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Repo{client: client}, nil
}

// Close releases the client.
func (r *Repo) Close() error {
	return r.client.Close()
}

func (r *Repo) user(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *Repo) LoadConversations(ctx context.Context, userID string) (map[model.Subject][]model.ChatMessage, error) {
	iter := r.user(userID).Collection(conversationsCollection).Documents(ctx)
	defer iter.Stop()

	out := make(map[model.Subject][]model.ChatMessage)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode conversation %s: %w", snap.Ref.ID, err)
		}
		subject := doc.Subject
		if subject == "" {
			subject = SubjectFromDocID(snap.Ref.ID)
		}
		out[model.Subject(subject)] = doc.Messages
	}
	return out, nil
}

func (r *Repo) SaveConversation(ctx context.Context, userID string, subject model.Subject, msgs []model.ChatMessage) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	ref := r.user(userID).Collection(conversationsCollection).Doc(DocIDForSubject(subject))
	_, err := ref.Set(ctx, conversationDoc{
		Subject:   string(subject),
		Messages:  msgs,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *Repo) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	snap, err := r.user(userID).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	var p model.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}

func (r *Repo) SaveProfile(ctx context.Context, profile model.Profile) error {
	if profile.UserID == "" {
		return fmt.Errorf("profile has no user id")
	}
	profile.UpdatedAt = time.Now().UnixMilli()
	if _, err := r.user(profile.UserID).Set(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// DocIDForSubject escapes a subject for use as a document id; ids may not
// contain "/".
func DocIDForSubject(subject model.Subject) string {
	return url.PathEscape(string(subject))
}

// SubjectFromDocID reverses DocIDForSubject.
func SubjectFromDocID(id string) string {
	if s, err := url.PathUnescape(id); err == nil {
		return s
	}
	return id
}

func mapError(err error) error {
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return fmt.Errorf("firestore: %w", err)
}
