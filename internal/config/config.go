// Package config loads and validates the runtime configuration: query
// parameters from a JSON file, credentials from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	pkgerrs "subsheet/pkg/errors"
)

const (
	// EnvConfigPath overrides the default config file location.
	EnvConfigPath     = "SUBSHEET_CONFIG"
	defaultConfigPath = "config.json"

	envClientID     = "REDDIT_CLIENT_ID"
	envClientSecret = "REDDIT_CLIENT_SECRET"
	envUserAgent    = "REDDIT_USER_AGENT"

	dateLayout = "2006-01-02"

	// Subreddit name constraints per Reddit's naming rules.
	minSubredditLength = 3
	maxSubredditLength = 21

	maxUserAgentLength = 256
)

// Config is the fully resolved runtime configuration. It is passed explicitly
// into the components that need it; the package keeps no global state.
type Config struct {
	Subreddit    string
	Start        time.Time
	End          time.Time
	TopPosts     int
	OutputDir    string
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// fileConfig mirrors the JSON layout of the config file.
type fileConfig struct {
	Reddit redditSection `mapstructure:"reddit"`
}

type redditSection struct {
	SubredditName string `mapstructure:"subreddit_name" validate:"required"`
	StartDate     string `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	TopPostNumber int    `mapstructure:"top_post_number" validate:"gt=0"`
	OutputDir     string `mapstructure:"output_dir"`
	BaseURL       string `mapstructure:"base_url" validate:"omitempty,url"`
	AuthURL       string `mapstructure:"auth_url" validate:"omitempty,url"`
}

// Load reads the config file named by SUBSHEET_CONFIG (default config.json),
// resolves credentials from the environment and validates everything. The
// credential variables may also come from a .env file in the working
// directory. Start and End come back as midnight UTC of the configured dates.
func Load() (*Config, error) {
	// A missing .env file is fine; the variables are usually exported
	// directly outside development.
	_ = gotenv.Load()

	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = defaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("reddit.output_dir", ".")
	if err := v.ReadInConfig(); err != nil {
		return nil, &pkgerrs.ConfigError{Field: "config", Message: fmt.Sprintf("read %s: %v", path, err)}
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, &pkgerrs.ConfigError{Field: "config", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if err := validateFile(&raw); err != nil {
		return nil, err
	}
	if err := validateSubredditName(raw.Reddit.SubredditName); err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, raw.Reddit.StartDate)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "start_date", Message: err.Error()}
	}
	end, err := time.Parse(dateLayout, raw.Reddit.EndDate)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "end_date", Message: err.Error()}
	}
	if end.Before(start) {
		return nil, &pkgerrs.ConfigError{Field: "end_date", Message: "must not be before start_date"}
	}

	cfg := &Config{
		Subreddit: raw.Reddit.SubredditName,
		Start:     start,
		End:       end,
		TopPosts:  raw.Reddit.TopPostNumber,
		OutputDir: raw.Reddit.OutputDir,
		BaseURL:   raw.Reddit.BaseURL,
		AuthURL:   raw.Reddit.AuthURL,
	}

	cfg.ClientID = os.Getenv(envClientID)
	if cfg.ClientID == "" {
		return nil, &pkgerrs.ConfigError{Field: envClientID, Message: "environment variable is not set"}
	}
	cfg.ClientSecret = os.Getenv(envClientSecret)
	if cfg.ClientSecret == "" {
		return nil, &pkgerrs.ConfigError{Field: envClientSecret, Message: "environment variable is not set"}
	}
	cfg.UserAgent = os.Getenv(envUserAgent)
	if err := validateUserAgent(cfg.UserAgent); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newValidate builds a validator that reports fields by their mapstructure
// names, matching what users see in the config file.
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	return v
}

func validateFile(raw *fileConfig) error {
	err := newValidate().Struct(raw)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &pkgerrs.ConfigError{Field: fe.Field(), Message: tagMessage(fe)}
	}
	return &pkgerrs.ConfigError{Field: "config", Message: err.Error()}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validateSubredditName checks the name against Reddit's naming rules.
func validateSubredditName(name string) error {
	if len(name) < minSubredditLength {
		return &pkgerrs.ConfigError{Field: "subreddit_name", Message: fmt.Sprintf("must be at least %d characters", minSubredditLength)}
	}
	if len(name) > maxSubredditLength {
		return &pkgerrs.ConfigError{Field: "subreddit_name", Message: fmt.Sprintf("cannot exceed %d characters", maxSubredditLength)}
	}
	if name[0] == '_' || name[len(name)-1] == '_' {
		return &pkgerrs.ConfigError{Field: "subreddit_name", Message: "cannot start or end with underscore"}
	}
	prevWasUnderscore := false
	for i, ch := range name {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') && ch != '_' {
			return &pkgerrs.ConfigError{Field: "subreddit_name", Message: fmt.Sprintf("contains invalid character '%c' at position %d", ch, i)}
		}
		if ch == '_' {
			if prevWasUnderscore {
				return &pkgerrs.ConfigError{Field: "subreddit_name", Message: "cannot contain consecutive underscores"}
			}
			prevWasUnderscore = true
		} else {
			prevWasUnderscore = false
		}
	}
	return nil
}

// validateUserAgent rejects values that could break the outgoing header.
func validateUserAgent(ua string) error {
	if ua == "" {
		return &pkgerrs.ConfigError{Field: envUserAgent, Message: "environment variable is not set"}
	}
	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: envUserAgent, Message: "cannot contain newline characters"}
	}
	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: envUserAgent, Message: fmt.Sprintf("too long (max %d characters)", maxUserAgentLength)}
	}
	return nil
}
