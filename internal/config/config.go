package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vadimbarashkov/shorty/internal/shortcode"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	GeneratorRandom = "random"
	GeneratorNanoID = "nanoid"
)

type Config struct {
	Env        string `yaml:"env"`
	BaseURL    string `yaml:"base_url"`
	ShortCode  `yaml:"short_code"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
}

// ShortCode configures how short codes are produced.
type ShortCode struct {
	Length      int    `yaml:"length"`
	MaxAttempts int    `yaml:"max_attempts"`
	Generator   string `yaml:"generator"`
}

var defaultShortCode = ShortCode{
	Length:      shortcode.MinLength,
	MaxAttempts: shortcode.DefaultMaxAttempts,
	Generator:   GeneratorRandom,
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	// QueryTimeout bounds every store call, including waiting for a pooled connection.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	QueryTimeout:    5 * time.Second,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Validate normalizes cfg and rejects values the service cannot run with.
// Short code lengths below shortcode.MinLength are raised to it.
func (cfg *Config) Validate() error {
	cfg.ShortCode.Length = max(cfg.ShortCode.Length, shortcode.MinLength)

	if cfg.ShortCode.MaxAttempts <= 0 {
		cfg.ShortCode.MaxAttempts = shortcode.DefaultMaxAttempts
	}

	cfg.ShortCode.Generator = strings.ToLower(strings.TrimSpace(cfg.ShortCode.Generator))
	switch cfg.ShortCode.Generator {
	case "":
		cfg.ShortCode.Generator = GeneratorRandom
	case GeneratorRandom, GeneratorNanoID:
	default:
		return fmt.Errorf("unknown short code generator %q", cfg.ShortCode.Generator)
	}

	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", cfg.Env)
	}

	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("BASE_URL"); ok && v != "" {
		cfg.BaseURL = v
	}

	if v, ok := os.LookupEnv("SHORT_CODE_LENGTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHORT_CODE_LENGTH %q: %w", v, err)
		}
		cfg.ShortCode.Length = n
	}

	if v, ok := os.LookupEnv("POSTGRES_PASSWORD"); ok && v != "" {
		cfg.Postgres.Password = v
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.ShortCode = defaultShortCode
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
}
