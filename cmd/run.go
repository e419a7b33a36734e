package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/app"
	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/config"
	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/store/firestoredoc"
)

// localUserID owns the terminal app's documents. Email sign-in only exists
// on the HTTP API.
const localUserID = "local"

// deps are the services every command builds from config.
type deps struct {
	cfg     config.Config
	store   *store.Store
	docs    store.DocumentRepo
	gateway *gateway.Gateway
	closers []func() error
}

// openDeps loads config, opens the store and builds the model gateway.
// With requireModel set, a missing API key is an error; otherwise the
// gateway is nil.
func openDeps(cmd *cobra.Command, requireModel bool) (*deps, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p == "" && cfg.DBPath != "" {
		_ = cmd.Flags().Set("db", cfg.DBPath)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	d := &deps{cfg: cfg, store: st, docs: st.DocumentRepo(), closers: []func() error{st.Close}}

	if cfg.FirestoreProject != "" {
		fs, err := firestoredoc.New(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect firestore: %w", err)
		}
		d.docs = fs
		d.closers = append(d.closers, fs.Close)
	}

	if !cfg.LLMConfigured {
		if requireModel {
			d.Close()
			return nil, errors.New("no model API key configured; run tutorly to set one up or set TUTORLY_GEMINI_API_KEY")
		}
		return d, nil
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	d.gateway = gateway.New(provider, gateway.DefaultConfig())
	return d, nil
}

// Close releases everything in reverse order of opening.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			fmt.Fprintln(os.Stderr, "warning: close:", err)
		}
	}
}

// loadState builds the application state for userID from the stored
// profile. A missing profile is not an error.
func loadState(ctx context.Context, docs store.DocumentRepo, userID string, configured bool) *appstate.State {
	state := appstate.New(configured)
	p, err := docs.LoadProfile(ctx, userID)
	switch {
	case err == nil:
		state.ApplyProfile(*p)
	case !errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(os.Stderr, "warning: failed to load profile:", err)
	}
	return state
}

// newController builds a conversation controller persisting to docs and
// restores the saved histories.
func newController(ctx context.Context, d *deps, opts ...conversation.Option) *conversation.Controller {
	opts = append([]conversation.Option{conversation.WithStore(d.docs, localUserID)}, opts...)
	chat := conversation.New(d.gateway, opts...)
	if err := chat.Restore(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to restore conversations:", err)
	}
	return chat
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	d, err := openDeps(cmd, false)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	env := &screen.Env{
		State:   loadState(ctx, d.docs, localUserID, d.cfg.LLMConfigured),
		Gateway: d.gateway,
		Docs:    d.docs,
		Quizzes: d.store.QuizResultRepo(),
		UserID:  localUserID,
	}
	if d.gateway != nil {
		env.Chat = newController(ctx, d)
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	return app.Run(env, envFile)
}
