package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-fitter/internal/db"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect fitting runs stored in the database",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print a stored run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete RUN_ID",
	Short: "Delete a stored run and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

var runsLimit int

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// requireStore opens the run database or fails when none is configured.
func requireStore(cmd *cobra.Command) (*db.DB, error) {
	store, err := openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("database_url is not configured")
	}
	return store, nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	store, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListFittingRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range runs {
		_, _ = fmt.Fprintf(out, "%s  %-20s %-7s %-10s %d -> %d (target %d)  %s\n",
			r.ID, r.Name, r.Mode, r.Status, r.InitialPages, r.FinalPages, r.TargetPages,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	store, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetFittingRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	jsonBytes, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	store, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteFittingRun(cmd.Context(), id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", id)
	return nil
}
