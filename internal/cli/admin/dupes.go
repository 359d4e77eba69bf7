package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloo-solutions/taskpriority/internal/config"
	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/service"
	"github.com/spf13/cobra"
)

// DupesCmd runs a one-off duplicate check so thresholds can be tuned against real data.
func DupesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Find likely duplicates of a description",
		Long:  "Run duplicate detection for an owner's open tasks with an adjustable threshold, window and limit",
		Args:  cobra.NoArgs,
		RunE:  runDupes,
	}

	cmd.Flags().String("owner", "", "Owner whose tasks are searched (required)")
	cmd.Flags().StringP("description", "d", "", "Description to check (required)")
	cmd.Flags().Float64("threshold", 0, "Minimum similarity; defaults to the interactive threshold")
	cmd.Flags().Int("window-days", 0, "Only consider tasks created in the last N days; defaults to the interactive window")
	cmd.Flags().Int("limit", 0, "Maximum matches to print; defaults to the configured result limit")
	cmd.Flags().String("exclude", "", "Task id to leave out of the results")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("description")

	return cmd
}

func runDupes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	policy, err := dupesPolicy(cmd, cfg)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	description, _ := cmd.Flags().GetString("description")
	exclude, _ := cmd.Flags().GetString("exclude")
	output, _ := cmd.Flags().GetString("output")

	results, err := a.taskSvc.DetectWithPolicy(ctx, service.FindDuplicatesInput{
		OwnerID:       owner,
		Description:   description,
		ExcludeTaskID: exclude,
	}, policy)
	if err != nil {
		return fmt.Errorf("duplicate detection failed: %w", err)
	}

	return printMatches(cmd.OutOrStdout(), output, policy, results)
}

// dupesPolicy starts from the configured interactive policy and applies any flags the user set.
func dupesPolicy(cmd *cobra.Command, cfg *config.Config) (service.DetectionPolicy, error) {
	policy := taskServiceConfig(cfg).Interactive

	if cmd.Flags().Changed("threshold") {
		policy.Threshold, _ = cmd.Flags().GetFloat64("threshold")
		if policy.Threshold < 0 || policy.Threshold > 1 {
			return policy, fmt.Errorf("--threshold must be within [0, 1]")
		}
	}
	if cmd.Flags().Changed("window-days") {
		n, _ := cmd.Flags().GetInt("window-days")
		if n < 1 {
			return policy, fmt.Errorf("--window-days must be at least 1")
		}
		policy.Window = days(n)
	}
	if cmd.Flags().Changed("limit") {
		policy.ResultLimit, _ = cmd.Flags().GetInt("limit")
	}

	return policy, nil
}

func printMatches(w io.Writer, format string, policy service.DetectionPolicy, results []domain.TaskSimilarity) error {
	if format == "json" {
		data := make([]map[string]interface{}, len(results))
		for i, r := range results {
			data[i] = map[string]interface{}{
				"task_id":     r.Task.ID,
				"status":      r.Task.Status,
				"description": r.Task.Description,
				"similarity":  r.Similarity,
			}
		}
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(jsonBytes))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintf(w, "No duplicates at threshold %.2f\n", policy.Threshold)
		return nil
	}

	fmt.Fprintf(w, "%d match(es) at threshold %.2f:\n", len(results), policy.Threshold)
	for _, r := range results {
		fmt.Fprintf(w, "  %.4f  %s  [%s]  %s\n", r.Similarity, r.Task.ID, r.Task.Status, r.Task.Description)
	}
	return nil
}
