package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent quiz results and weak topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, false)
		if err != nil {
			return err
		}
		defer d.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		results, err := d.store.QuizResultRepo().Recent(cmd.Context(), localUserID, limit)
		if err != nil {
			return fmt.Errorf("query quiz results: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No quizzes taken yet.")
		} else {
			fmt.Printf("%-19s  %-10s  %6s  %s\n", "Finished", "Subject", "Score", "Flagged")
			fmt.Println(strings.Repeat("─", 72))

			var score, total int
			for _, r := range results {
				fmt.Printf("%-19s  %-10s  %3d/%-2d  %s\n",
					r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					r.Subject, r.Score, r.Total,
					strings.Join(r.FlaggedTopics, ", "),
				)
				score += r.Score
				total += r.Total
			}

			fmt.Println(strings.Repeat("─", 72))
			if total > 0 {
				fmt.Printf("Accuracy: %.0f%% over %d quizzes\n", 100*float64(score)/float64(total), len(results))
			}
		}

		weak := loadState(cmd.Context(), d.docs, localUserID, true).WeakTopics()
		if len(weak) > 0 {
			fmt.Println("\nWeak topics:", strings.Join(weak, ", "))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 20, "Number of quizzes to show")
}
