package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/model"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long:  "Clear every saved conversation and reset preferences and weak topics. Quiz history and LLM logs are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Println("This clears all conversations, preferences and weak topics. Re-run with --yes to confirm.")
			return nil
		}

		d, err := openDeps(cmd, false)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		convs, err := d.docs.LoadConversations(ctx, localUserID)
		if err != nil {
			return fmt.Errorf("load conversations: %w", err)
		}
		for subject := range convs {
			if err := d.docs.SaveConversation(ctx, localUserID, subject, []model.ChatMessage{}); err != nil {
				return fmt.Errorf("clear %s: %w", subject, err)
			}
		}
		if err := d.docs.SaveProfile(ctx, appstate.New(true).Profile(localUserID)); err != nil {
			return fmt.Errorf("reset profile: %w", err)
		}

		fmt.Printf("Cleared %d conversations and reset your profile.\n", len(convs))
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
