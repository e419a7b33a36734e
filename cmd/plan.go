package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/gateway"
)

var planCmd = &cobra.Command{
	Use:   "plan [topic...]",
	Short: "Build a study plan from weak topics",
	Long:  "Build a study plan for the given topics, or for the weak topics saved from quizzes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, true)
		if err != nil {
			return err
		}
		defer d.Close()

		topics := args
		if len(topics) == 0 {
			topics = loadState(cmd.Context(), d.docs, localUserID, true).WeakTopics()
		}

		res := d.gateway.GenerateStudyPlan(cmd.Context(), topics)
		if res.Outcome == gateway.Failed {
			return fmt.Errorf("study plan: %w", res.Err)
		}
		plan := res.Value
		if plan.IsZero() {
			fmt.Println("The plan came back empty.")
			return nil
		}

		fmt.Println("Daily goals")
		for i, g := range plan.DailyGoals {
			fmt.Printf("  %d. %s\n", i+1, g)
		}
		if len(plan.WeakTopics) > 0 {
			fmt.Println("\nFocus topics")
			for _, t := range plan.WeakTopics {
				fmt.Println("  •", t)
			}
		}
		if plan.NextStudy != "" {
			fmt.Println("\nNext:", plan.NextStudy)
		}
		return nil
	},
}
