package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mealprep/tools"
)

var (
	notify bool

	buildCmd = &cobra.Command{
		Use:   "build [meals.json]",
		Short: "Plan a cooking session for the meals in a JSON file",
		Long: `build reads an array of planned meals
({"id", "recipe_id", "multiplier", "date", "slot"}) and stores a planned session
with its merged, equipment-aware timeline.`,
		Args: cobra.ExactArgs(1),
		RunE: runBuild,
	}

	toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "List the operations available to the Lambda handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing never runs a tool, so no services are wired.
			for _, t := range tools.NewRegistry(nil, nil, nil).GetTools() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", t.Name(), t.Description())
			}
			return nil
		},
	}
)

func init() {
	buildCmd.Flags().BoolVar(&notify, "notify", false, "post the timeline to SLACK_WEBHOOK_URL")
	rootCmd.AddCommand(buildCmd, toolsCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	var meals []any
	if err := readJSON(args[0], &meals); err != nil {
		return err
	}

	out, err := run(cmd, "timeline_build", map[string]any{"user_id": userID, "meals": meals})
	if err != nil {
		return err
	}
	if !notify {
		return nil
	}
	if current.slack == nil {
		slog.Warn("SETUP: --notify given but SLACK_WEBHOOK_URL is not set")
		return nil
	}

	id, _ := out["session"].(map[string]any)["id"].(string)
	cs, err := current.sessions.Get(cmd.Context(), userID, id)
	if err != nil {
		return err
	}
	if err := current.slack.PostTimeline(cmd.Context(), current.slackCfg.Channel, "Cooking session "+cs.ID, cs.Timeline); err != nil {
		slog.Error("Failed to post timeline to Slack", "error", err)
	}
	return nil
}
