package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joeshaw/envdecode"

	"mealprep"
	"mealprep/pantry"
	"mealprep/recipe"
	"mealprep/schedule"
	"mealprep/session"
	"mealprep/storage"
	"mealprep/tools"
)

type Params struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

type Results struct {
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorClass string         `json:"error_class,omitempty"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var plannerCfg mealprep.PlannerConfig
		if err := envdecode.Decode(&plannerCfg); err != nil {
			return Results{}, fmt.Errorf("decode planner config: %w", err)
		}
		var storageCfg mealprep.StorageConfig
		if err := envdecode.Decode(&storageCfg); err != nil {
			return Results{}, fmt.Errorf("decode storage config: %w", err)
		}
		storageCfg.Backend = "s3"

		store, closeStore, err := storage.Open(ctx, storageCfg)
		if err != nil {
			slog.Error("SETUP: Failed to open store", "error", err)
			return Results{}, err
		}
		defer closeStore() // nolint: errcheck

		catalog, err := loadCatalog(ctx, store, plannerCfg.RecipesKey)
		if err != nil {
			slog.Error("SETUP: Failed to load recipes from S3", "error", err)
			return Results{}, err
		}
		slog.Info("SETUP: Recipes loaded from S3", "recipes_count", len(catalog))

		profile, err := schedule.ProfileFromConfig(plannerCfg)
		if err != nil {
			return Results{}, err
		}

		tracerProvider, meterProvider, otelShutdown, err := mealprep.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		events := mealprep.NewStdoutEventLogger()
		builder := schedule.NewBuilder(catalog, profile)
		instrumented := schedule.NewInstrumentedBuilder(builder,
			tracerProvider.Tracer(mealprep.TracerNameLambda),
			meterProvider.Meter(mealprep.TracerNameLambda),
		)
		ledger := pantry.NewService(store, events)
		sessions := session.NewService(store, instrumented, ledger, events)
		registry := tools.NewRegistry(sessions, ledger, builder)

		return handle(ctx, registry, params)
	}

	lambda.Start(fn)
}

// handle runs one tool call. Rejected requests come back as a result with an error class
// so callers can tell them apart from failures; anything else fails the invocation.
func handle(ctx context.Context, registry *tools.Registry, params Params) (Results, error) {
	output, err := registry.Dispatch(ctx, tools.Call{Name: params.Tool, Input: params.Input})
	if err == nil {
		return Results{Output: output}, nil
	}

	class := mealprep.Classify(err)
	switch class {
	case mealprep.ClassState, mealprep.ClassConcurrency:
		slog.Info("RESULT: Request rejected", "tool", params.Tool, "error", err, "class", class.String())
		return Results{Error: err.Error(), ErrorClass: class.String()}, nil
	default:
		slog.Error("RESULT: Error handling tool call", "tool", params.Tool, "error", err)
		return Results{}, err
	}
}

func loadCatalog(ctx context.Context, store storage.Store, key string) (recipe.MapCatalog, error) {
	obj, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read recipes %s: %w", key, err)
	}
	return recipe.DecodeCatalog(obj.Data)
}
