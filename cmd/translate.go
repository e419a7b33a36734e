package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/gateway"
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate Bangla and English line by line with grammar notes",
	Long:  "Translate the given text, or standard input when no text is given.",
	RunE:  runTranslate,
}

func init() {
	translateCmd.Flags().StringP("direction", "d", "bn-en", "Translation direction: bn-en or en-bn")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	dirFlag, _ := cmd.Flags().GetString("direction")
	dir, err := gateway.ParseDirection(dirFlag)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	d, err := openDeps(cmd, true)
	if err != nil {
		return err
	}
	defer d.Close()

	res := d.gateway.Translate(cmd.Context(), text, dir)
	switch res.Outcome {
	case gateway.Failed:
		return fmt.Errorf("translation failed: %w", res.Err)
	case gateway.Empty:
		fmt.Println("Nothing to translate.")
		return nil
	}

	sep := strings.Repeat("─", 60)
	for i, line := range res.Value.Lines {
		if i > 0 {
			fmt.Println(sep)
		}
		fmt.Printf("%s\n→ %s\n", line.Original, line.Translated)
		if line.Explanation != "" {
			fmt.Printf("\n%s\n", line.Explanation)
		}
		for _, n := range line.GrammarAnalysis {
			fmt.Printf("  • %s (%s): %s\n", n.Word, n.PartOfSpeech, n.Explanation)
		}
	}
	return nil
}
