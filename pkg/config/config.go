package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// DevJWTSecret is the JWT_SECRET default. It is refused outside development.
const DevJWTSecret = "supersecretjwtkey"

const minJWTSecretLen = 32

// Docstore drivers.
const (
	DriverFirestore = "firestore"
	DriverMongo     = "mongo"
	DriverMemory    = "memory"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DocstoreDriver string `env:"DOCSTORE_DRIVER" envDefault:"memory"`

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`

	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"motorhub"`

	PostgresConnStr string `env:"POSTGRES_CONN_STR"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"supersecretjwtkey"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`

	ContentAPIURL     string        `env:"CONTENT_API_URL" envDefault:"http://localhost:5000"`
	ContentAPITimeout time.Duration `env:"CONTENT_API_TIMEOUT" envDefault:"10s"`

	NotificationPollInterval time.Duration `env:"NOTIFICATION_POLL_INTERVAL" envDefault:"30s"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// Missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the chosen docstore driver has what it needs and
// that deployed environments carry their own JWT secret.
func (c *Config) Validate() error {
	if !c.IsDevelopment() {
		switch {
		case c.JWTSecret == "" || c.JWTSecret == DevJWTSecret:
			return fmt.Errorf("ENV=%s requires JWT_SECRET to be set", c.Env)
		case len(c.JWTSecret) < minJWTSecretLen:
			return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
		}
	}

	switch c.DocstoreDriver {
	case DriverMemory:
	case DriverFirestore:
		if c.FirebaseCredentialsPath == "" {
			return errors.New("DOCSTORE_DRIVER=firestore requires FIREBASE_CREDENTIALS_PATH")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("DOCSTORE_DRIVER=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown DOCSTORE_DRIVER %q", c.DocstoreDriver)
	}
	return nil
}

// IsDevelopment reports whether ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
