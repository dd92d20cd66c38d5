package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mealprep/session"
)

var (
	leftoversPath string
	abandon       bool

	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Drive a cooking session",
	}
	sessionListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the user's sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := current.sessions.ListSessions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-11s  %3d steps  %4d min  %s\n",
					s.ID, s.Status, len(s.Timeline.Steps), s.Timeline.TotalMinutes, s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	sessionStartCmd = &cobra.Command{
		Use:   "start [session-id]",
		Short: "Start cooking a planned session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "session_status_update", map[string]any{
				"user_id":    userID,
				"session_id": args[0],
				"status":     string(session.StatusInProgress),
			})
			return err
		},
	}
	sessionCompleteStepCmd = &cobra.Command{
		Use:   "complete-step [session-id] [step-id]",
		Short: "Mark a timeline step done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "step_complete", map[string]any{
				"user_id":    userID,
				"session_id": args[0],
				"step_id":    args[1],
			})
			return err
		},
	}
	sessionAdjustCmd = &cobra.Command{
		Use:   "adjust [session-id] [step-id] [actual-minutes]",
		Short: "Record how long a step really took and reflow the rest",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("actual-minutes must be a whole number: %w", err)
			}
			_, err = run(cmd, "time_adjust", map[string]any{
				"user_id":        userID,
				"session_id":     args[0],
				"step_id":        args[1],
				"actual_minutes": minutes,
			})
			return err
		},
	}
	sessionFinishCmd = &cobra.Command{
		Use:   "finish [session-id]",
		Short: "Complete (or abandon) a running session, filing leftovers in the pantry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := map[string]any{
				"user_id":    userID,
				"session_id": args[0],
				"status":     string(session.StatusCompleted),
			}
			if abandon {
				input["status"] = string(session.StatusAbandoned)
			}
			if leftoversPath != "" {
				var leftovers []any
				if err := readJSON(leftoversPath, &leftovers); err != nil {
					return err
				}
				input["leftovers"] = leftovers
			}
			_, err := run(cmd, "session_status_update", input)
			return err
		},
	}
)

func init() {
	sessionFinishCmd.Flags().StringVar(&leftoversPath, "leftovers", "", "JSON array of leftovers to add to the pantry")
	sessionFinishCmd.Flags().BoolVar(&abandon, "abandon", false, "abandon instead of completing")
	sessionFinishCmd.MarkFlagsMutuallyExclusive("leftovers", "abandon")

	sessionCmd.AddCommand(sessionListCmd, sessionStartCmd, sessionCompleteStepCmd, sessionAdjustCmd, sessionFinishCmd)
	rootCmd.AddCommand(sessionCmd)
}
