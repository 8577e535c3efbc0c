package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string
	Env     string // DEV (default), TEST, QA, PROD
	Debug   bool
	Build   string

	// remote Nurture API
	APIBaseURL string
	APITimeout time.Duration

	// identity provider
	IdentityBaseURL string
	IdentityAPIKey  string

	// session
	TokenMinRemaining time.Duration // force a refresh below this remaining lifetime
	CachePath         string        // local session/snapshot cache (sqlite)

	// onboarding advancement poll
	PollBaseDelay   time.Duration
	PollGrowth      float64
	PollCapDelay    time.Duration
	PollMaxAttempts int

	QuestionnaireTarget int // answered questions needed to complete onboarding
	MaxChildren         int

	RollbarToken string
}

func (conf *Config) IsProd() bool { return conf.Env == "PROD" }
func (conf *Config) IsTest() bool { return conf.Env == "TEST" }

// Validate checks that settings without usable zero values are present.
func (conf *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.APIBaseURL, "apiBaseURL"),
		vala.StringNotEmpty(conf.IdentityBaseURL, "identityBaseURL"),
		vala.GreaterThan(conf.PollMaxAttempts, 0, "pollMaxAttempts"),
		vala.GreaterThan(conf.QuestionnaireTarget, 0, "questionnaireTarget"),
		vala.GreaterThan(conf.MaxChildren, 0, "maxChildren"),
	).Check()
}

// NewConfig loads configuration from an optional config/.env.<env> file and
// environment variables prefixed with the environment name.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Nurture")
	v.SetDefault("debug", true)
	v.SetDefault("apiBaseURL", "https://api.nurture.app")
	v.SetDefault("apiTimeout", 15*time.Second)
	v.SetDefault("identityBaseURL", "https://identitytoolkit.googleapis.com")
	v.SetDefault("tokenMinRemaining", 5*time.Minute)
	v.SetDefault("cachePath", filepath.Join(userCacheDir(), "nurture", "session.db"))
	v.SetDefault("pollBaseDelay", 2*time.Second)
	v.SetDefault("pollGrowth", 1.3)
	v.SetDefault("pollCapDelay", 8*time.Second)
	v.SetDefault("pollMaxAttempts", 12)
	v.SetDefault("questionnaireTarget", 10)
	v.SetDefault("maxChildren", 5)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName: v.GetString("appName"),
		Env:     env,
		Debug:   v.GetBool("debug"),
		Build:   v.GetString("build"),

		APIBaseURL: v.GetString("apiBaseURL"),
		APITimeout: v.GetDuration("apiTimeout"),

		IdentityBaseURL: v.GetString("identityBaseURL"),
		IdentityAPIKey:  v.GetString("identityAPIKey"),

		TokenMinRemaining: v.GetDuration("tokenMinRemaining"),
		CachePath:         v.GetString("cachePath"),

		PollBaseDelay:   v.GetDuration("pollBaseDelay"),
		PollGrowth:      v.GetFloat64("pollGrowth"),
		PollCapDelay:    v.GetDuration("pollCapDelay"),
		PollMaxAttempts: v.GetInt("pollMaxAttempts"),

		QuestionnaireTarget: v.GetInt("questionnaireTarget"),
		MaxChildren:         v.GetInt("maxChildren"),

		RollbarToken: v.GetString("rollbarToken"),
	}
}

func userCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return dir
}
