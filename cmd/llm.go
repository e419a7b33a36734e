package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded model calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE:  runLLMList,
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one call",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMView,
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Token usage per feature and estimated cost per model",
	RunE:  runLLMStats,
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only calls for one feature (tutor, translate, news, plan, quiz)")
	llmListCmd.Flags().Bool("failed", false, "Only failed calls")
	llmListCmd.Flags().Duration("since", 0, "Only calls newer than this (e.g. 24h)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}

// openEventStore opens the database the events were recorded in.
func openEventStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func runLLMList(cmd *cobra.Command, args []string) error {
	opts := store.QueryOpts{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Purpose, _ = cmd.Flags().GetString("purpose")
	opts.Failed, _ = cmd.Flags().GetBool("failed")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.From = time.Now().Add(-since)
	}

	s, err := openEventStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No model calls recorded.")
		return nil
	}

	fmt.Printf("%-5s  %-16s  %-10s  %-26s  %6s  %6s  %6s  %s\n",
		"ID", "Time", "Feature", "Model", "In", "Out", "Ms", "OK")
	fmt.Println(strings.Repeat("─", 96))
	for _, e := range events {
		status := "✓"
		if !e.Success {
			status = "✗ " + truncate(e.ErrorMessage, 40)
		}
		fmt.Printf("%-5d  %-16s  %-10s  %-26s  %6d  %6d  %6d  %s\n",
			e.ID,
			e.Timestamp.Local().Format("01-02 15:04:05"),
			truncate(e.Purpose, 10),
			truncate(e.Model, 26),
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			status,
		)
	}
	return nil
}

func runLLMView(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %q", args[0])
	}

	s, err := openEventStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no model call with ID %d", id)
	}
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}

	fmt.Printf("ID:        %d (sequence %d)\n", e.ID, e.Sequence)
	fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Model:     %s via %s\n", e.Model, e.Provider)
	fmt.Printf("Feature:   %s\n", e.Purpose)
	fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	if cost := llm.LookupCost(e.Model); cost != nil {
		fmt.Printf("Cost:      %s\n", formatCost(cost.Cost(e.InputTokens, e.OutputTokens)))
	}
	fmt.Printf("Latency:   %dms\n", e.LatencyMs)
	if !e.Success {
		fmt.Printf("Error:     %s\n", e.ErrorMessage)
	}

	printSection("REQUEST", e.RequestBody)
	printSection("RESPONSE", e.ResponseBody)
	return nil
}

func printSection(title, body string) {
	sep := strings.Repeat("─", 60)
	fmt.Println()
	fmt.Println(sep)
	fmt.Println(title)
	fmt.Println(sep)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Println(body)
}

func runLLMStats(cmd *cobra.Command, args []string) error {
	s, err := openEventStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}
	if len(byPurpose) == 0 {
		fmt.Println("No model calls recorded.")
		return nil
	}

	rule := strings.Repeat("─", 72)
	fmt.Println("Usage by feature")
	fmt.Println(rule)
	fmt.Printf("%-16s  %6s  %6s  %10s  %10s  %8s\n", "Feature", "Calls", "Failed", "Input", "Output", "Avg Ms")
	fmt.Println(rule)
	var calls, failed, in, out int
	for _, u := range byPurpose {
		fmt.Printf("%-16s  %6d  %6d  %10d  %10d  %8d\n",
			u.Key, u.Requests, u.Failures, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		calls += u.Requests
		failed += u.Failures
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Println(rule)
	fmt.Printf("%-16s  %6d  %6d  %10d  %10d\n", "TOTAL", calls, failed, in, out)

	byModel, err := s.EventRepo().LLMUsageByModel(ctx)
	if err != nil {
		return fmt.Errorf("query model usage: %w", err)
	}

	fmt.Println()
	fmt.Println("Estimated cost (USD)")
	fmt.Println(rule)
	var total float64
	var unpriced []string
	for _, u := range byModel {
		cost := llm.LookupCost(u.Key)
		if cost == nil {
			unpriced = append(unpriced, u.Key)
			fmt.Printf("%-32s  %6d calls  %10s\n", truncate(u.Key, 32), u.Requests, "?")
			continue
		}
		c := cost.Cost(u.InputTokens, u.OutputTokens)
		total += c
		fmt.Printf("%-32s  %6d calls  %10s\n", truncate(u.Key, 32), u.Requests, formatCost(c))
	}
	fmt.Println(rule)
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Printf("%-32s  %12s  %10s\n", label, "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Printf("\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
