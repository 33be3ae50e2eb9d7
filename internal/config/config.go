// Package config loads relaypost settings. Layers apply in order: built-in
// defaults, an optional YAML file, the environment (including a .env file),
// then command-line flags that were explicitly set.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "RELAYPOST_"

type Config struct {
	Listen      string `yaml:"listen"`
	DebugListen string `yaml:"debug_listen"`

	Domain    string `yaml:"domain"`
	APIHost   string `yaml:"api_host"`
	APIPort   uint16 `yaml:"api_port"`
	UploadURL string `yaml:"upload_url"`
	PostURL   string `yaml:"post_url"`

	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	UpstreamTimeout    time.Duration `yaml:"upstream_timeout"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	NegotiationTimeout time.Duration `yaml:"negotiation_timeout"`
	TCPKeepAlive       string        `yaml:"tcp_keepalive"`

	AuditDB string `yaml:"audit_db"`

	RateLimit    float64 `yaml:"rate_limit"`
	RateBurst    int     `yaml:"rate_burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes"`

	Verbose bool `yaml:"verbose"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:             "127.0.0.1:5000",
		Domain:             "twitter.com",
		APIHost:            "api.twitter.com",
		APIPort:            443,
		UploadURL:          "https://upload.twitter.com/1.1/media/upload.json",
		PostURL:            "https://api.twitter.com/2/tweets",
		ProbeTimeout:       5 * time.Second,
		UpstreamTimeout:    30 * time.Second,
		DialTimeout:        10 * time.Second,
		NegotiationTimeout: 10 * time.Second,
		TCPKeepAlive:       "45:45:3",
		RateLimit:          5,
		RateBurst:          10,
		MaxBodyBytes:       16 << 20,
	}
}

// Load parses args into fs and resolves the layered configuration. env looks
// up process environment variables; nil means os.LookupEnv.
func Load(fs *pflag.FlagSet, args []string, env func(string) (string, bool)) (Config, error) {
	if env == nil {
		env = os.LookupEnv
	}

	cfg := Defaults()
	flagCfg := cfg
	configPath := fs.String("config", "", "Path to a YAML config file")
	envFile := fs.String("env-file", ".env", "Path to a dotenv file; missing is fine")
	register(fs, &flagCfg)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	env, err := withDotEnv(*envFile, env)
	if err != nil {
		return Config{}, err
	}

	path := *configPath
	if !fs.Changed("config") {
		if v, ok := env(envPrefix + "CONFIG"); ok {
			path = v
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	applyFlags(fs, &flagCfg, &cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func register(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.Listen, "listen", c.Listen, "HTTP API listen address")
	fs.StringVar(&c.DebugListen, "debug-listen", c.DebugListen, "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
	fs.StringVar(&c.Domain, "domain", c.Domain, "Platform domain used in post URLs")
	fs.StringVar(&c.APIHost, "api-host", c.APIHost, "Upstream API host the proxy probe connects to")
	fs.Uint16Var(&c.APIPort, "api-port", c.APIPort, "Upstream API port the proxy probe connects to")
	fs.StringVar(&c.UploadURL, "upload-url", c.UploadURL, "Media upload endpoint")
	fs.StringVar(&c.PostURL, "post-url", c.PostURL, "Post creation endpoint")
	fs.DurationVar(&c.ProbeTimeout, "probe-timeout", c.ProbeTimeout, "Timeout for one proxy connectivity probe")
	fs.DurationVar(&c.UpstreamTimeout, "upstream-timeout", c.UpstreamTimeout, "Timeout for one upload or post call")
	fs.DurationVar(&c.DialTimeout, "dial-timeout", c.DialTimeout, "Timeout for outbound DNS lookup and TCP connect")
	fs.DurationVar(&c.NegotiationTimeout, "negotiation-timeout", c.NegotiationTimeout, "Timeout for proxy protocol negotiation")
	fs.StringVar(&c.TCPKeepAlive, "tcp-keepalive", c.TCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
	fs.StringVar(&c.AuditDB, "audit-db", c.AuditDB, "SQLite path for persisted audit records. Empty disables.")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Sustained /post requests per second")
	fs.IntVar(&c.RateBurst, "rate-burst", c.RateBurst, "Burst size for /post requests")
	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", c.MaxBodyBytes, "Maximum /post request body size")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Enable per-attempt logging")
}

// applyFlags copies only the flags the user set, so unset flags never
// override file or environment values.
func applyFlags(fs *pflag.FlagSet, from, to *Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			to.Listen = from.Listen
		case "debug-listen":
			to.DebugListen = from.DebugListen
		case "domain":
			to.Domain = from.Domain
		case "api-host":
			to.APIHost = from.APIHost
		case "api-port":
			to.APIPort = from.APIPort
		case "upload-url":
			to.UploadURL = from.UploadURL
		case "post-url":
			to.PostURL = from.PostURL
		case "probe-timeout":
			to.ProbeTimeout = from.ProbeTimeout
		case "upstream-timeout":
			to.UpstreamTimeout = from.UpstreamTimeout
		case "dial-timeout":
			to.DialTimeout = from.DialTimeout
		case "negotiation-timeout":
			to.NegotiationTimeout = from.NegotiationTimeout
		case "tcp-keepalive":
			to.TCPKeepAlive = from.TCPKeepAlive
		case "audit-db":
			to.AuditDB = from.AuditDB
		case "rate-limit":
			to.RateLimit = from.RateLimit
		case "rate-burst":
			to.RateBurst = from.RateBurst
		case "max-body-bytes":
			to.MaxBodyBytes = from.MaxBodyBytes
		case "verbose":
			to.Verbose = from.Verbose
		}
	})
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// withDotEnv layers the dotenv file under env. Real environment variables
// win, as with godotenv.Load.
func withDotEnv(path string, env func(string) (string, bool)) (func(string) (string, bool), error) {
	if path == "" {
		return env, nil
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := vals[key]
		return v, ok
	}, nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := env(envPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := env(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN", &cfg.Listen)
	str("DEBUG_LISTEN", &cfg.DebugListen)
	str("DOMAIN", &cfg.Domain)
	str("API_HOST", &cfg.APIHost)
	str("UPLOAD_URL", &cfg.UploadURL)
	str("POST_URL", &cfg.PostURL)
	str("TCP_KEEPALIVE", &cfg.TCPKeepAlive)
	str("AUDIT_DB", &cfg.AuditDB)
	dur("PROBE_TIMEOUT", &cfg.ProbeTimeout)
	dur("UPSTREAM_TIMEOUT", &cfg.UpstreamTimeout)
	dur("DIAL_TIMEOUT", &cfg.DialTimeout)
	dur("NEGOTIATION_TIMEOUT", &cfg.NegotiationTimeout)

	if v, ok := env(envPrefix + "API_PORT"); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sAPI_PORT: %w", envPrefix, err))
		} else {
			cfg.APIPort = uint16(n)
		}
	}
	if v, ok := env(envPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sRATE_LIMIT: %w", envPrefix, err))
		} else {
			cfg.RateLimit = f
		}
	}
	if v, ok := env(envPrefix + "RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sRATE_BURST: %w", envPrefix, err))
		} else {
			cfg.RateBurst = n
		}
	}
	if v, ok := env(envPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sMAX_BODY_BYTES: %w", envPrefix, err))
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v, ok := env(envPrefix + "VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sVERBOSE: %w", envPrefix, err))
		} else {
			cfg.Verbose = b
		}
	}

	return errors.Join(errs...)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	} else if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("invalid listen address %q: %w", c.Listen, err))
	}
	if c.Domain == "" {
		errs = append(errs, errors.New("domain is required"))
	}
	if c.APIHost == "" || c.APIPort == 0 {
		errs = append(errs, errors.New("api host and port are required"))
	}
	for name, raw := range map[string]string{"upload url": c.UploadURL, "post url": c.PostURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid %s %q", name, raw))
		}
	}
	for name, d := range map[string]time.Duration{
		"probe timeout":       c.ProbeTimeout,
		"upstream timeout":    c.UpstreamTimeout,
		"dial timeout":        c.DialTimeout,
		"negotiation timeout": c.NegotiationTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	if _, err := c.KeepAlive(); err != nil {
		errs = append(errs, fmt.Errorf("invalid tcp keepalive: %w", err))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("rate limit and burst must be > 0"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be > 0"))
	}
	return errors.Join(errs...)
}
