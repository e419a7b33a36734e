package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/auth"
	"github.com/abhisek/tutorly/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides TUTORLY_ADDR)")
	serveCmd.Flags().Bool("no-worker", false, "Enqueue email but do not run the delivery worker")
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd, true)
	if err != nil {
		return err
	}
	defer d.Close()

	addr := d.cfg.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}

	// Email goes straight out over SMTP (or to the log) unless Redis is
	// configured, in which case it is queued for the worker.
	deliver := auth.NewMailer(d.cfg.SMTP, os.Stderr)
	mailer := deliver
	if d.cfg.RedisURL != "" {
		qm, err := auth.NewQueueMailer(d.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("email queue: %w", err)
		}
		defer qm.Close()
		mailer = qm

		if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
			worker, err := auth.NewWorker(d.cfg.RedisURL, deliver)
			if err != nil {
				return fmt.Errorf("email worker: %w", err)
			}
			if err := worker.Start(); err != nil {
				return fmt.Errorf("start email worker: %w", err)
			}
			defer worker.Shutdown()
		}
	}

	authSvc := auth.NewService(d.store.AuthRepo(), mailer, d.cfg.Auth)
	srv := server.New(server.Deps{
		Gateway:     d.gateway,
		Docs:        d.docs,
		Quizzes:     d.store.QuizResultRepo(),
		Auth:        authSvc,
		CORSOrigins: d.cfg.CORSOrigins,
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, authSvc)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] listening on %s (model %s)", addr, d.gateway.ModelID())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[HTTP] shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cleanupLoop drops expired sign-in links and sessions every hour.
func cleanupLoop(ctx context.Context, svc *auth.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := svc.Cleanup(ctx); err != nil {
				log.Printf("[AUTH] cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("[AUTH] removed %d expired records", n)
			}
		}
	}
}
