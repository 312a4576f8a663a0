package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hooknotify/hooknotify/config"
	"github.com/hooknotify/hooknotify/event/codec"
	"github.com/hooknotify/hooknotify/hub"
	"github.com/hooknotify/hooknotify/internal/http/chi"
)

/* The entry point wires the packages together in one direction only:
 * the binary imports the transport layer, which imports the domain.
 */

func main() {
	cfg, err := config.GetServer()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	h := hub.New(hub.Config{
		AdmissionToken:    cfg.AdmissionToken,
		EncryptionEnabled: cfg.EncryptionEnabled,
	}, codec.New(cfg.EncryptionKey), log)
	defer h.Close()

	r := chi.Handlers(h, h, cfg.APIKey)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, cfg.ShutdownTimeout, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, timeout time.Duration, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("forcing closing the server")
	}
}
