package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSendEmail is the asynq task type for outgoing email.
const TypeSendEmail = "email:send"

const emailQueue = "critical"

// QueueMailer enqueues email for a Worker to deliver.
type QueueMailer struct {
	client *asynq.Client
}

// NewQueueMailer connects to the Redis instance at redisURL
// ("redis://host:port/db").
func NewQueueMailer(redisURL string) (*QueueMailer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &QueueMailer{client: asynq.NewClient(opt)}, nil
}

// NewEmailTask builds the task carrying msg.
func NewEmailTask(msg Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal email payload: %w", err)
	}
	return asynq.NewTask(TypeSendEmail, payload,
		asynq.Queue(emailQueue),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	), nil
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	task, err := NewEmailTask(msg)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (m *QueueMailer) Close() error {
	return m.client.Close()
}

// HandleSendEmail returns the task handler that delivers queued email
// through deliver.
func HandleSendEmail(deliver Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var msg Message
		if err := json.Unmarshal(task.Payload(), &msg); err != nil {
			return fmt.Errorf("unmarshal email payload: %w: %w", err, asynq.SkipRetry)
		}
		if err := deliver.Send(ctx, msg); err != nil {
			return fmt.Errorf("deliver email to %s: %w", msg.To, err)
		}
		return nil
	}
}

// Worker runs the email queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a worker that consumes queued email from redisURL and
// hands it to deliver.
func NewWorker(redisURL string, deliver Mailer) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{emailQueue: 6, "default": 3},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			fmt.Fprintf(os.Stderr, "warning: job %s failed: %v\n", task.Type(), err)
		}),
		Logger: jobLogger{},
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeSendEmail, HandleSendEmail(deliver))
	return &Worker{server: server, mux: mux}, nil
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown stops the worker, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// jobLogger sends asynq's log lines to stderr.
type jobLogger struct{}

func (jobLogger) Debug(args ...any) {}
func (jobLogger) Info(args ...any)  { fmt.Fprintln(os.Stderr, append([]any{"[JOBS]"}, args...)...) }
func (jobLogger) Warn(args ...any) {
	fmt.Fprintln(os.Stderr, append([]any{"[JOBS] warning:"}, args...)...)
}
func (jobLogger) Error(args ...any) {
	fmt.Fprintln(os.Stderr, append([]any{"[JOBS] error:"}, args...)...)
}
func (jobLogger) Fatal(args ...any) {
	fmt.Fprintln(os.Stderr, append([]any{"[JOBS] fatal:"}, args...)...)
	os.Exit(1)
}
