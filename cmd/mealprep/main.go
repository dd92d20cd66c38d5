package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"

	"mealprep"
	"mealprep/pantry"
	"mealprep/recipe"
	"mealprep/schedule"
	"mealprep/session"
	"mealprep/slack"
	"mealprep/storage"
	"mealprep/tools"
)

var (
	userID      string
	recipesPath string
	backend     string
	dumpOutput  bool
	journal     bool

	current *app

	rootCmd = &cobra.Command{
		Use:   "mealprep",
		Short: "Plan and run batch-cooking sessions",
		Long: `mealprep builds a single cooking timeline for a batch of planned meals,
tracks the session while you cook and keeps a pantry of what is left over.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "tools" {
				return nil
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if current == nil {
				return nil
			}
			return current.Close(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", envOr("MEALPREP_USER", "local"), "user the sessions and pantry belong to")
	rootCmd.PersistentFlags().StringVar(&recipesPath, "recipes", "", "recipes JSON file (overrides RECIPES_PATH)")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "storage backend: file, badger, s3 or memory (overrides STORE_BACKEND)")
	rootCmd.PersistentFlags().BoolVar(&dumpOutput, "dump", false, "also dump tool output to stderr")
	rootCmd.PersistentFlags().BoolVar(&journal, "journal", false, "write the event journal under ./logs (EVENT_LOG_PATH wins when set)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if current != nil {
			current.Close(context.Background()) // nolint: errcheck
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates rejected requests (1) from failures (2).
func exitCode(err error) int {
	switch mealprep.Classify(err) {
	case mealprep.ClassState, mealprep.ClassConcurrency:
		return 1
	default:
		return 2
	}
}

// app holds everything a command needs, built once per invocation.
type app struct {
	registry *tools.Registry
	sessions *session.Service
	slack    *slack.Client
	slackCfg mealprep.SlackConfig

	closeStore   func() error
	closeJournal func() error
	otelShutdown func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	var plannerCfg mealprep.PlannerConfig
	if err := envdecode.Decode(&plannerCfg); err != nil {
		return nil, fmt.Errorf("SETUP: decode planner config: %w", err)
	}
	var storageCfg mealprep.StorageConfig
	if err := envdecode.Decode(&storageCfg); err != nil {
		return nil, fmt.Errorf("SETUP: decode storage config: %w", err)
	}
	var slackCfg mealprep.SlackConfig
	if err := envdecode.Decode(&slackCfg); err != nil {
		return nil, fmt.Errorf("SETUP: decode slack config: %w", err)
	}
	var journalCfg mealprep.EventLogConfig
	if err := envdecode.Decode(&journalCfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("SETUP: decode event log config: %w", err)
	}
	if recipesPath != "" {
		plannerCfg.RecipesPath = recipesPath
	}
	if backend != "" {
		storageCfg.Backend = backend
	}
	if journal && journalCfg.Path == "" {
		journalCfg.Path = mealprep.NewEventLogFilePath(userID)
		if err := os.MkdirAll(filepath.Dir(journalCfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("SETUP: create log directory: %w", err)
		}
	}

	profile, err := schedule.ProfileFromConfig(plannerCfg)
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(plannerCfg.RecipesPath)
	if err != nil {
		return nil, err
	}
	slog.Info("SETUP: Recipes loaded", "path", plannerCfg.RecipesPath, "recipes", len(catalog))

	store, closeStore, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, err
	}

	events, closeJournal, err := newJournal(journalCfg.Path)
	if err != nil {
		closeStore() // nolint: errcheck
		return nil, err
	}

	tracerProvider, meterProvider, otelShutdown, err := mealprep.InitOtel(ctx)
	if err != nil {
		closeJournal() // nolint: errcheck
		closeStore()   // nolint: errcheck
		return nil, fmt.Errorf("SETUP: initialize OpenTelemetry: %w", err)
	}

	builder := schedule.NewBuilder(catalog, profile)
	instrumented := schedule.NewInstrumentedBuilder(builder,
		tracerProvider.Tracer(mealprep.TracerNameCLI),
		meterProvider.Meter(mealprep.TracerNameCLI),
	)
	ledger := pantry.NewService(store, events)
	sessions := session.NewService(store, instrumented, ledger, events)

	a := &app{
		registry:     tools.NewRegistry(sessions, ledger, builder),
		sessions:     sessions,
		slackCfg:     slackCfg,
		closeStore:   closeStore,
		closeJournal: closeJournal,
		otelShutdown: otelShutdown,
	}
	if slackCfg.WebhookURL != "" {
		a.slack = slack.NewClient(slackCfg.WebhookURL, http.DefaultClient)
	}
	return a, nil
}

func (a *app) Close(ctx context.Context) error {
	err := errors.Join(a.closeJournal(), a.closeStore(), a.otelShutdown(ctx))
	current = nil
	return err
}

func loadCatalog(path string) (recipe.MapCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("SETUP: read recipes: %w", err)
	}
	return recipe.DecodeCatalog(data)
}

func newJournal(path string) (mealprep.EventLogger, func() error, error) {
	if path == "" {
		return mealprep.NewNoOpEventLogger(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("SETUP: open event log: %w", err)
	}
	logger := mealprep.NewFileEventLogger(f)
	return logger, func() error { return errors.Join(logger.Flush(), f.Close()) }, nil
}

// run dispatches a tool call and prints its output as indented JSON.
func run(cmd *cobra.Command, name string, input map[string]any) (map[string]any, error) {
	out, err := current.registry.Dispatch(cmd.Context(), tools.Call{Name: name, Input: input})
	if err != nil {
		return nil, err
	}
	if dumpOutput {
		mealprep.Dump(cmd.ErrOrStderr(), out)
	}
	return out, printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
