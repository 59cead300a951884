package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment keys understood by the console.
const (
	KeyConfigFile        = "MANAGERAPP_CONFIG"
	KeyAPIURL            = "MANAGERAPP_API_URL"
	KeyClientID          = "MANAGERAPP_CLIENT_ID"
	KeyClientSecret      = "MANAGERAPP_CLIENT_SECRET"
	KeyHTTPPort          = "MANAGERAPP_HTTP_PORT"
	KeyTokenDB           = "MANAGERAPP_TOKEN_DB"
	KeyRedisURL          = "MANAGERAPP_REDIS_URL"
	KeyTokenPassphrase   = "MANAGERAPP_TOKEN_PASSPHRASE"
	KeySkewSeconds       = "MANAGERAPP_SKEW_SECONDS"
	KeyRequestTimeout    = "MANAGERAPP_REQUEST_TIMEOUT"
	KeyRequestsPerSecond = "MANAGERAPP_REQUESTS_PER_SECOND"
	KeyPageSize          = "MANAGERAPP_PAGE_SIZE"
	KeyLogLevel          = "MANAGERAPP_LOG_LEVEL"
	KeyLogFormat         = "MANAGERAPP_LOG_FORMAT"
)

// Config captures the settings of the console process.
type Config struct {
	APIURL            string
	ClientID          string
	ClientSecret      string
	HTTPPort          int
	TokenDB           string
	RedisURL          string
	TokenPassphrase   string
	SkewSeconds       int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	PageSize          int
	LogLevel          string
	LogFormat         string
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		APIURL:            "http://localhost:8080",
		HTTPPort:          5173,
		TokenDB:           "managerapp.db",
		SkewSeconds:       30,
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 10,
		PageSize:          10,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// fileConfig is the YAML layout of the optional config file.
type fileConfig struct {
	API struct {
		URL               string  `yaml:"url"`
		ClientID          string  `yaml:"client_id"`
		ClientSecret      string  `yaml:"client_secret"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"api"`
	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Session struct {
		TokenDB     string `yaml:"token_db"`
		RedisURL    string `yaml:"redis_url"`
		Passphrase  string `yaml:"passphrase"`
		SkewSeconds int    `yaml:"skew_seconds"`
	} `yaml:"session"`
	UI struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"ui"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (f fileConfig) values() map[string]string {
	values := map[string]string{
		KeyAPIURL:          f.API.URL,
		KeyClientID:        f.API.ClientID,
		KeyClientSecret:    f.API.ClientSecret,
		KeyRequestTimeout:  f.API.Timeout,
		KeyTokenDB:         f.Session.TokenDB,
		KeyRedisURL:        f.Session.RedisURL,
		KeyTokenPassphrase: f.Session.Passphrase,
		KeyLogLevel:        f.Log.Level,
		KeyLogFormat:       f.Log.Format,
	}
	if f.API.RequestsPerSecond != 0 {
		values[KeyRequestsPerSecond] = strconv.FormatFloat(f.API.RequestsPerSecond, 'f', -1, 64)
	}
	if f.HTTP.Port != 0 {
		values[KeyHTTPPort] = strconv.Itoa(f.HTTP.Port)
	}
	if f.Session.SkewSeconds != 0 {
		values[KeySkewSeconds] = strconv.Itoa(f.Session.SkewSeconds)
	}
	if f.UI.PageSize != 0 {
		values[KeyPageSize] = strconv.Itoa(f.UI.PageSize)
	}
	return values
}

// Sources selects where Load reads settings from. Later sources win:
// the YAML file, then the dotenv file, then the environment.
type Sources struct {
	ConfigFile string
	EnvFile    string
	Getenv     func(string) string
}

// Load reads the process environment, an optional .env file in the working
// directory and the YAML file named by MANAGERAPP_CONFIG.
func Load() (Config, error) {
	return LoadFrom(Sources{
		ConfigFile: os.Getenv(KeyConfigFile),
		EnvFile:    ".env",
		Getenv:     os.Getenv,
	})
}

// LoadFrom resolves the configuration from src.
//
// Defaults apply to optional fields. Missing required values and invalid
// values are collected and reported together.
func LoadFrom(src Sources) (Config, error) {
	raw := make(map[string]string)

	if src.ConfigFile != "" {
		values, err := readConfigFile(src.ConfigFile)
		if err != nil {
			return Config{}, err
		}
		merge(raw, values)
	}

	if src.EnvFile != "" {
		values, err := godotenv.Read(src.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", src.EnvFile, err)
		}
		merge(raw, values)
	}

	if src.Getenv != nil {
		for _, key := range allKeys {
			if value := src.Getenv(key); strings.TrimSpace(value) != "" {
				raw[key] = value
			}
		}
	}

	return parse(raw)
}

var allKeys = []string{
	KeyAPIURL, KeyClientID, KeyClientSecret, KeyHTTPPort, KeyTokenDB, KeyRedisURL,
	KeyTokenPassphrase, KeySkewSeconds, KeyRequestTimeout, KeyRequestsPerSecond,
	KeyPageSize, KeyLogLevel, KeyLogFormat,
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return file.values(), nil
}

func merge(dst, src map[string]string) {
	for key, value := range src {
		if strings.TrimSpace(value) != "" {
			dst[key] = value
		}
	}
}

func parse(raw map[string]string) (Config, error) {
	cfg := Default()

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	get := func(key string) string { return strings.TrimSpace(raw[key]) }

	if value := get(KeyAPIURL); value != "" {
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, KeyAPIURL)
		} else {
			cfg.APIURL = strings.TrimRight(value, "/")
		}
	}

	if cfg.ClientID = get(KeyClientID); cfg.ClientID == "" {
		missing = append(missing, KeyClientID)
	}
	if cfg.ClientSecret = get(KeyClientSecret); cfg.ClientSecret == "" {
		missing = append(missing, KeyClientSecret)
	}

	if value := get(KeyHTTPPort); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, KeyHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := get(KeyTokenDB); value != "" {
		cfg.TokenDB = value
	}

	if value := get(KeyRedisURL); value != "" {
		if u, err := url.Parse(value); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			invalid = append(invalid, KeyRedisURL)
		} else {
			cfg.RedisURL = value
		}
	}

	cfg.TokenPassphrase = raw[KeyTokenPassphrase]

	if value := get(KeySkewSeconds); value != "" {
		skew, err := strconv.Atoi(value)
		if err != nil || skew < 0 {
			invalid = append(invalid, KeySkewSeconds)
		} else {
			cfg.SkewSeconds = skew
		}
	}

	if value := get(KeyRequestTimeout); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, KeyRequestTimeout)
		} else {
			cfg.RequestTimeout = timeout
		}
	}

	if value := get(KeyRequestsPerSecond); value != "" {
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, KeyRequestsPerSecond)
		} else {
			cfg.RequestsPerSecond = rps
		}
	}

	if value := get(KeyPageSize); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			invalid = append(invalid, KeyPageSize)
		} else {
			cfg.PageSize = size
		}
	}

	if value := strings.ToLower(get(KeyLogLevel)); value != "" {
		switch value {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = value
		default:
			invalid = append(invalid, KeyLogLevel)
		}
	}

	if value := strings.ToLower(get(KeyLogFormat)); value != "" {
		switch value {
		case "json", "text":
			cfg.LogFormat = value
		default:
			invalid = append(invalid, KeyLogFormat)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variáveis de ambiente obrigatórias ausentes: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores inválidos nas variáveis de ambiente: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Address returns the listen address of the console server.
func (c Config) Address() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}
