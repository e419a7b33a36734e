package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "tutorly",
	Short: "AI study companion for secondary students",
	Long:  "Tutorly is a terminal study companion: a subject tutor, Bangla/English translator, education news, quizzes and a study planner.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TUTORLY_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to the .env file holding API keys")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then TUTORLY_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
