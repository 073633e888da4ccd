// Command createsuperuser creates an elevated account so that a fresh
// installation can be administered through the API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/jsonlog"
	"github.com/hafizmfadli/film-library/internal/validator"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	var (
		dsn      string
		username string
		email    string
		password string
		migrate  bool
	)

	flag.StringVar(&dsn, "db-dsn", os.Getenv("FILMLIB_DB_DSN"), "PostgreSQL DSN")
	flag.StringVar(&username, "username", "", "Username of the new account")
	flag.StringVar(&email, "email", "", "E-mail address of the new account")
	flag.StringVar(&password, "password", os.Getenv("FILMLIB_SUPERUSER_PASSWORD"), "Password of the new account")
	flag.BoolVar(&migrate, "db-migrate", false, "Apply database migrations first")
	flag.Parse()

	logger := jsonlog.NewLogger(os.Stdout, jsonlog.LevelInfo)

	user := &data.User{
		Username:    username,
		Email:       email,
		IsSuperuser: true,
		IsStaff:     true,
		IsActive:    true,
	}

	v := validator.New()
	if data.ValidatePasswordPlaintext(v, password); v.Valid() {
		if err := user.Password.Set(password); err != nil {
			logger.PrintFatal(err, nil)
		}
		data.ValidateUser(v, user)
	}
	if !v.Valid() {
		for field, msg := range v.Errors {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
		os.Exit(2)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.PrintFatal(err, nil)
	}

	if migrate {
		if err := data.Migrate(db); err != nil {
			logger.PrintFatal(err, nil)
		}
	}

	models := data.NewModels(db)

	err = models.Users.Insert(user)
	if err != nil {
		if errors.Is(err, data.ErrDuplicateUsername) {
			fmt.Fprintf(os.Stderr, "username %q is already taken\n", username)
			os.Exit(1)
		}
		logger.PrintFatal(err, nil)
	}

	logger.PrintInfo("superuser created", map[string]string{
		"id":       fmt.Sprint(user.ID),
		"username": user.Username,
	})
}
