package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/document"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask the tutor one question and stream the answer",
	Long: `Ask the tutor a question from the command line. The exchange is added to
the subject's saved conversation, so the TUI shows it too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("subject", "s", "", "Subject (defaults to the saved subject)")
	chatCmd.Flags().String("context-file", "", "PDF or text file to use as reference material")
	chatCmd.Flags().Bool("new", false, "Clear the subject's conversation first")
}

func runChat(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd, true)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []conversation.Option
	if path, _ := cmd.Flags().GetString("context-file"); path != "" {
		doc, err := document.Extract(path, 0)
		if err != nil {
			return fmt.Errorf("read context file: %w", err)
		}
		if doc.Truncated {
			fmt.Fprintf(os.Stderr, "note: %s was truncated to %d characters\n", doc.Name, len(doc.Text))
		}
		opts = append(opts, conversation.WithContext(doc.Text))
	}
	chat := newController(context.WithoutCancel(ctx), d, opts...)

	subject := loadState(ctx, d.docs, localUserID, true).Subject()
	if s, _ := cmd.Flags().GetString("subject"); s != "" {
		subject = model.ParseSubject(s)
	}
	if fresh, _ := cmd.Flags().GetBool("new"); fresh {
		if err := chat.Clear(ctx, subject); err != nil {
			return err
		}
	}

	// Print each update's new suffix as the reply grows.
	var mu sync.Mutex
	printed := ""
	unsubscribe := chat.Subscribe(func(sub model.Subject, history []model.ChatMessage) {
		if sub != subject || len(history) == 0 {
			return
		}
		last := history[len(history)-1]
		if last.Role != model.RoleModel {
			return
		}
		text := gateway.VisibleText(last.Text)
		mu.Lock()
		defer mu.Unlock()
		if strings.HasPrefix(text, printed) {
			fmt.Print(text[len(printed):])
			printed = text
		}
	})
	defer unsubscribe()

	reply, err := chat.Send(ctx, subject, strings.Join(args, " "), "")
	if err != nil {
		return err
	}
	fmt.Println()

	switch reply.Outcome {
	case gateway.Canceled:
		fmt.Fprintln(os.Stderr, "(stopped)")
	case gateway.Failed:
		return fmt.Errorf("tutor reply failed: %w", reply.Err)
	}
	if len(reply.Message.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("You could ask next:")
		for _, s := range reply.Message.Suggestions {
			fmt.Println("  •", s)
		}
	}
	return nil
}
