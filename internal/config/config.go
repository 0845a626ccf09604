// Package config provides functionality for managing configuration options
// for the analysis proxy using command-line flags, environment variables,
// a .env file and an optional JSON config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/atinyakov/BagWardrobe/internal/service"
)

// Options holds the configuration values for the proxy.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// ProviderURL is the provider's chat-completion endpoint.
	ProviderURL string `json:"provider_url"`

	// APIVersion is the provider protocol version header value.
	APIVersion string `json:"api_version"`

	// Model is the provider model identifier.
	Model string `json:"model"`

	// MaxTokens is the output token cap, between 1000 and 1500.
	MaxTokens int `json:"max_tokens"`

	// Timeout bounds every provider call.
	Timeout Duration `json:"timeout"`

	// MaxRequestBytes caps the size of an incoming analyze request body.
	MaxRequestBytes int64 `json:"max_request_bytes"`

	// DetectMediaType declares the real image type instead of image/jpeg.
	DetectMediaType bool `json:"detect_media_type"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Duration is a time.Duration read from JSON as a string such as "90s".
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// options holds the current configuration values.
var options = &Options{}

var timeout time.Duration

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.ProviderURL, "provider-url", service.DefaultProviderURL, "provider messages endpoint")
	flag.StringVar(&options.APIVersion, "api-version", service.DefaultAPIVersion, "provider API version header")
	flag.StringVar(&options.Model, "model", service.DefaultModel, "provider model")
	flag.IntVar(&options.MaxTokens, "max-tokens", service.DefaultMaxTokens, "max output tokens (1000-1500)")
	flag.DurationVar(&timeout, "timeout", service.DefaultTimeout, "provider call timeout")
	flag.Int64Var(&options.MaxRequestBytes, "max-request-bytes", service.DefaultMaxRequestBytes, "max analyze request body size in bytes")
	flag.BoolVar(&options.DetectMediaType, "detect-media-type", true, "declare real image media types instead of image/jpeg")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level")
	flag.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate")
	flag.StringVar(&options.TLSKey, "tls-key", "", "path to TLS key")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. Precedence, lowest first: flag defaults and values,
// the JSON config file, environment variables (including .env).
func Parse() *Options {
	return parse(os.Args[1:])
}

func parse(args []string) *Options {
	if !flag.Parsed() {
		_ = flag.CommandLine.Parse(args)
	}
	options.Timeout = Duration(timeout)

	// A missing .env file is fine.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	applyEnv(options)
	return options
}

func applyEnv(o *Options) {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := os.Getenv("PROVIDER_URL"); v != "" {
		o.ProviderURL = v
	}
	if v := os.Getenv("ANTHROPIC_VERSION"); v != "" {
		o.APIVersion = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		o.Model = v
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.MaxTokens = n
		} else {
			log.Printf("ignoring MAX_TOKENS=%q: %v", v, err)
		}
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			o.Timeout = Duration(d)
		} else {
			log.Printf("ignoring PROVIDER_TIMEOUT=%q: %v", v, err)
		}
	}
	if v := os.Getenv("MAX_REQUEST_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MaxRequestBytes = n
		} else {
			log.Printf("ignoring MAX_REQUEST_BYTES=%q: %v", v, err)
		}
	}
	if v := os.Getenv("DETECT_MEDIA_TYPE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			o.DetectMediaType = b
		} else {
			log.Printf("ignoring DETECT_MEDIA_TYPE=%q: %v", v, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		o.TLSCert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		o.TLSKey = v
	}
}

// Validate checks the option values.
func (o *Options) Validate() error {
	var errs []error
	if o.ProviderURL == "" {
		errs = append(errs, errors.New("provider url is required"))
	}
	if o.MaxTokens < service.MinMaxTokens || o.MaxTokens > service.MaxMaxTokens {
		errs = append(errs, fmt.Errorf("max tokens must be between %d and %d, got %d",
			service.MinMaxTokens, service.MaxMaxTokens, o.MaxTokens))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if o.MaxRequestBytes <= 0 {
		errs = append(errs, errors.New("max request bytes must be positive"))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	return errors.Join(errs...)
}

// AnalysisConfig converts the options into the proxy configuration.
func (o *Options) AnalysisConfig() service.AnalysisConfig {
	cfg := service.DefaultAnalysisConfig()
	cfg.ProviderURL = o.ProviderURL
	cfg.APIVersion = o.APIVersion
	cfg.Model = o.Model
	cfg.MaxTokens = o.MaxTokens
	cfg.Timeout = time.Duration(o.Timeout)
	cfg.DetectMediaType = o.DetectMediaType
	return cfg
}
