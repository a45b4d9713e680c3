package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"recipe-planner/internal/core/events"
	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/infrastructure/storage"
	"recipe-planner/internal/pkg/common"
)

//go:embed sample_data.json
var sampleData []byte

func main() {
	fixturePath := pflag.StringP("fixture", "f", "", "fixture file (default: built-in sample data)")
	dbPath := pflag.String("db", "", "SQLite database path (default: DATABASE_PATH)")
	publish := pflag.Bool("publish", false, "publish meal plan change events after loading")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	data := sampleData
	if *fixturePath != "" {
		if data, err = os.ReadFile(*fixturePath); err != nil {
			common.LogFatal("Fixture file not found", zap.String("path", *fixturePath), zap.Error(err))
		}
	}

	var fixture storage.Fixture
	if err := common.ParseJSONBytesStrict(data, &fixture); err != nil {
		common.LogFatal("Invalid fixture", zap.Error(err))
	}

	repo, err := storage.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer repo.Close()

	ctx := context.Background()
	result, err := repo.LoadFixture(ctx, fixture)
	if err != nil {
		common.LogFatal("Error loading fixture", zap.Error(err))
	}

	common.LogInfo("範例資料已載入",
		zap.String("database", cfg.Database.Path),
		zap.Int("recipes", result.Recipes),
		zap.Int("reused_recipes", result.ReusedRecipes),
		zap.Int("meal_plans", len(result.MealPlans)),
		zap.Int("skipped", result.Skipped),
	)

	if !*publish {
		return
	}
	if !cfg.Events.Enabled {
		common.LogWarn("Events disabled, nothing published")
		return
	}

	client, err := events.NewClient(cfg.Events.URL, cfg.Events.Exchange, cfg.Events.Queue)
	if err != nil {
		common.LogFatal("Failed to connect to AMQP", zap.Error(err))
	}
	defer client.Close()

	for _, mp := range result.MealPlans {
		msg := events.NewMealPlanChangedMessage(mp.UserID, mp.ID, events.ActionCreated)
		if err := client.PublishMealPlanChanged(ctx, msg); err != nil {
			common.LogError("Failed to publish meal plan event", zap.Int64("meal_plan_id", mp.ID), zap.Error(err))
		}
	}
}
