package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 5 * time.Second

// serve starts the HTTP server and blocks until it has shut down. SIGINT and
// SIGTERM trigger a graceful shutdown which also waits for background tasks
// such as welcome e-mails.
func (app *application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.port),
		Handler:      app.routes(),
		ErrorLog:     log.New(app.logger, "", 0),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownErr <- app.shutdown(srv)
	}()

	app.logger.PrintInfo("starting server", map[string]string{
		"addr":    srv.Addr,
		"env":     app.config.env,
		"version": version,
	})

	// ErrServerClosed only means Shutdown has been called.
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return err
	}

	app.logger.PrintInfo("stopped server", map[string]string{"addr": srv.Addr})
	return nil
}

// shutdown stops accepting requests, waits for in-flight ones and then for
// the goroutines started with app.background.
func (app *application) shutdown(srv *http.Server) error {
	app.logger.PrintInfo("shutting down server", map[string]string{"addr": srv.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	app.logger.PrintInfo("completing background tasks", map[string]string{"addr": srv.Addr})
	app.wg.Wait()

	return nil
}
