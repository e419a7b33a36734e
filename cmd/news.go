package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/gateway"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Summarize this week's education news",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, true)
		if err != nil {
			return err
		}
		defer d.Close()

		locale, _ := cmd.Flags().GetString("locale")
		if locale == "" {
			locale = loadState(cmd.Context(), d.docs, localUserID, true).Locale()
		}

		res := d.gateway.FetchNews(cmd.Context(), locale)
		fmt.Println(res.Value.Text)
		if res.Outcome == gateway.Failed {
			return fmt.Errorf("fetch news: %w", res.Err)
		}
		if len(res.Value.Sources) > 0 {
			fmt.Println("\nSources:")
			for i, src := range res.Value.Sources {
				fmt.Printf("  %d. %s\n     %s\n", i+1, src.Title, src.URI)
			}
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().StringP("locale", "l", "", "Language: en or bn (defaults to the saved setting)")
}
