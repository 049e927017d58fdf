package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded at startup).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	Groq   GroqConfig
	Tavily TavilyConfig
	Twilio TwilioConfig
}

type AppConfig struct {
	Env  string
	Port int

	// BaseURL is the public origin Twilio uses to reach webhook and audio URLs.
	BaseURL string

	// AudioTTL bounds how long synthesized turn audio stays servable.
	AudioTTL time.Duration
}

type GroqConfig struct {
	APIKey   string
	Model    string
	TTSModel string
	TTSVoice string
}

type TavilyConfig struct {
	APIKey string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// FromNumber is the caller ID for outbound calls (E.164).
	FromNumber string

	// ToNumberOverride redirects every outbound call to a fixed number.
	// Useful for demos so real dealers are not dialed. Optional.
	ToNumberOverride string
}

func Load() (Config, error) {
	// Missing .env is fine; real env vars win either way.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("APP_BASE_URL")), "/")
	c.App.AudioTTL = optDuration("AUDIO_TTL")

	c.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	c.Groq.Model = strings.TrimSpace(os.Getenv("GROQ_MODEL"))
	c.Groq.TTSModel = strings.TrimSpace(os.Getenv("GROQ_TTS_MODEL"))
	c.Groq.TTSVoice = strings.TrimSpace(os.Getenv("GROQ_TTS_VOICE"))

	c.Tavily.APIKey = os.Getenv("TAVILY_API_KEY")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))
	c.Twilio.ToNumberOverride = strings.TrimSpace(os.Getenv("TWILIO_TO_NUMBER"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.BaseURL == "" {
		errs = append(errs, errors.New("APP_BASE_URL is required (public URL for Twilio webhooks)"))
	} else if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("APP_BASE_URL must be an absolute URL, got %q", c.App.BaseURL))
	}

	if c.Groq.APIKey == "" {
		errs = append(errs, errors.New("GROQ_API_KEY is required"))
	}
	if c.Tavily.APIKey == "" {
		errs = append(errs, errors.New("TAVILY_API_KEY is required"))
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.FromNumber == "" {
		errs = append(errs, errors.New("TWILIO_PHONE_NUMBER is required"))
	}

	return joinErrors(errs)
}

func (c *Config) applyDefaults() {
	if c.Groq.Model == "" {
		c.Groq.Model = "openai/gpt-oss-120b"
	}
	if c.Groq.TTSModel == "" {
		c.Groq.TTSModel = "playai-tts"
	}
	if c.Groq.TTSVoice == "" {
		c.Groq.TTSVoice = "Fritz-PlayAI"
	}
	if c.App.AudioTTL <= 0 {
		c.App.AudioTTL = 5 * time.Minute
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// WebhookURL builds an absolute URL under the public base for provider callbacks.
func (c Config) WebhookURL(path string) string {
	return c.App.BaseURL + path
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
