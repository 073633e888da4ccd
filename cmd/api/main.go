package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/jsonlog"
	"github.com/hafizmfadli/film-library/internal/mailer"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Application version number
const version = "1.0.0"

// config holds every setting read from the command line. Flag defaults come
// from the environment, which an optional .env file may populate.
type config struct {
	port     int
	env      string // development|staging|production
	logLevel string // INFO|ERROR|FATAL|OFF

	db struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
		migrate      bool // apply the embedded migrations before serving
	}

	// Per-client token bucket.
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}

	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}

	jwt struct {
		secret string
		ttl    time.Duration
	}

	cors struct {
		trustedOrigins []string
	}
}

// emailSender is the part of mailer.Mailer the handlers use.
type emailSender interface {
	Send(recipient, templateFile string, data any) error
}

// application holds the dependencies of the HTTP handlers, helpers and
// middleware.
type application struct {
	config config
	logger *jsonlog.Logger
	models data.Models
	mailer emailSender
	// schemaVersion reports the applied migration version. Nil without a database.
	schemaVersion func() (int64, error)
	// wg tracks goroutines started with background; shutdown waits for them.
	wg sync.WaitGroup
}

func main() {
	// Values from a local .env file become defaults for the flags below. A
	// missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	var cfg config

	flag.IntVar(&cfg.port, "port", 4000, "API server port")
	flag.StringVar(&cfg.env, "env", "development", "Environment (development|staging|production)")
	flag.StringVar(&cfg.logLevel, "log-level", "INFO", "Minimum log level (INFO|ERROR|FATAL|OFF)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("FILMLIB_DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	flag.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")
	flag.BoolVar(&cfg.db.migrate, "db-migrate", false, "Apply database migrations on startup")

	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")

	flag.StringVar(&cfg.smtp.host, "smtp-host", os.Getenv("FILMLIB_SMTP_HOST"), "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 1025, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("FILMLIB_SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("FILMLIB_SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "Film Library <no-reply@film-library.local>", "SMTP sender")

	flag.StringVar(&cfg.jwt.secret, "jwt-secret", os.Getenv("FILMLIB_JWT_SECRET"), "JWT signing secret")
	flag.DurationVar(&cfg.jwt.ttl, "jwt-ttl", 24*time.Hour, "Authentication token lifetime")

	flag.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.cors.trustedOrigins = strings.Fields(val)
		return nil
	})

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := jsonlog.NewLogger(os.Stdout, jsonlog.ParseLevel(cfg.logLevel))

	if cfg.jwt.secret == "" {
		logger.PrintFatal(errors.New("a JWT secret must be provided with -jwt-secret or FILMLIB_JWT_SECRET"), nil)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()

	logger.PrintInfo("database connection pool established", nil)

	if cfg.db.migrate {
		if err := data.Migrate(db); err != nil {
			logger.PrintFatal(err, nil)
		}
		logger.PrintInfo("database migrations applied", nil)
	}

	app := &application{
		config: cfg,
		logger: logger,
		models: data.NewModels(db),
		mailer: mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
		schemaVersion: func() (int64, error) {
			return data.SchemaVersion(db)
		},
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// openDB returns a sql.DB connection pool
func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	// Passing a value less than or equal to 0 means there is no limit.
	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)

	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// If the connection couldn't be established within the 5 second deadline,
	// give up.
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
