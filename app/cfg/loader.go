package cfg

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"news_info.db" description:"SQLite database file"`

	// Application configuration
	RegionsDir        string `long:"regions-dir" env:"REGIONS_DIR" default:"./regions" description:"Directory containing region configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Automatic refresh interval in seconds (0 disables)"`
	RefreshOnStart    bool   `long:"refresh-on-start" env:"REFRESH_ON_START" description:"Enqueue a refresh of all regions at startup"`
	RefreshOnce       bool   `long:"refresh-once" description:"Refresh all regions once and exit"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Ingestion
	Markets          []string `long:"market" env:"MARKETS" env-delim:"," default:"Energy" default:"Technology" default:"Climate Change" default:"Healthcare" default:"Real Estate" description:"Market vocabulary (repeatable)"`
	DefaultStartDate string   `long:"default-start-date" env:"DEFAULT_START_DATE" default:"2025-11-10" description:"Bootstrap start date (YYYY-MM-DD) used when the store is empty"`
	HTTPTimeout      int      `long:"http-timeout" env:"HTTP_TIMEOUT" default:"10" description:"Timeout in seconds for feed and model calls"`
	MaxEntries       int      `long:"max-entries" env:"MAX_ENTRIES" default:"10" description:"Most recent entries taken per source and run"`

	// Classification service
	UseModel     bool     `long:"use-model" env:"USE_MODEL" description:"Classify with a language model by default"`
	Models       []string `long:"model" env:"MODELS" env-delim:"," default:"llama3.1:8b" default:"llama3.2:1b" default:"gpt-oss:latest" default:"gemma3:270m" description:"Available model identifiers (repeatable)"`
	DefaultModel string   `long:"default-model" env:"DEFAULT_MODEL" description:"Model used when a refresh does not name one (defaults to the first available model)"`
	LLMBaseURL   string   `long:"llm-base-url" env:"LLM_BASE_URL" default:"http://localhost:11434/v1" description:"OpenAI-compatible endpoint of the classification service"`
	LLMAPIKey    string   `long:"llm-api-key" env:"LLM_API_KEY" default:"ollama" description:"API key for the classification service"`
	LLMRPM       int      `long:"llm-rpm" env:"LLM_RPM" default:"120" description:"Maximum classification requests per minute"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RegNews/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Oslo)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	startDate, err := time.Parse(time.DateOnly, raw.DefaultStartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid default start date %q: %w", raw.DefaultStartDate, err)
	}

	markets := cleanList(raw.Markets)
	if len(markets) == 0 {
		return nil, fmt.Errorf("at least one market is required")
	}

	models := cleanList(raw.Models)
	defaultModel := strings.TrimSpace(raw.DefaultModel)
	if defaultModel == "" && len(models) > 0 {
		defaultModel = models[0]
	}
	if defaultModel != "" && !slices.Contains(models, defaultModel) {
		models = append(models, defaultModel)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		RegionsDir:        raw.RegionsDir,
		Port:              raw.Port,
		SchedulerInterval: raw.SchedulerInterval,
		RefreshOnStart:    raw.RefreshOnStart,
		RefreshOnce:       raw.RefreshOnce,
		APIAccessKey:      raw.APIAccessKey,
		Markets:           markets,
		DefaultStartDate:  startDate,
		HTTPTimeout:       raw.HTTPTimeout,
		MaxEntries:        raw.MaxEntries,
		UseModel:          raw.UseModel,
		Models:            models,
		DefaultModel:      defaultModel,
		LLMBaseURL:        raw.LLMBaseURL,
		LLMAPIKey:         raw.LLMAPIKey,
		LLMRPM:            raw.LLMRPM,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.ContainsFunc(out, func(o string) bool { return strings.EqualFold(o, v) }) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
