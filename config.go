package mealprep

// PlannerConfig controls how session timelines are built.
type PlannerConfig struct {
	RecipesPath        string `env:"RECIPES_PATH,default=artifacts/recipes.json"`
	RecipesKey         string `env:"RECIPES_KEY,default=catalog/recipes"`
	KitchenProfilePath string `env:"KITCHEN_PROFILE_PATH"`
	MaxRecipeDepth     int    `env:"MAX_RECIPE_DEPTH,default=10"`
	LookaheadMinutes   int    `env:"LOOKAHEAD_MINUTES,default=240"`
}

// StorageConfig selects and configures the persistence backend for sessions and pantries.
type StorageConfig struct {
	Backend    string `env:"STORE_BACKEND,default=file"`
	Dir        string `env:"STORE_DIR,default=artifacts/store"`
	BadgerPath string `env:"BADGER_PATH,default=artifacts/badger"`
	S3Bucket   string `env:"ARTIFACTS_S3_BUCKET"`
	S3Prefix   string `env:"ARTIFACTS_S3_PREFIX,default=mealprep/"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL,default=#meal-prep"`
}

type EventLogConfig struct {
	Path string `env:"EVENT_LOG_PATH"`
}
