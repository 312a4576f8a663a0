package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hooknotify/hooknotify/client"
	"github.com/hooknotify/hooknotify/config"
	"github.com/hooknotify/hooknotify/event/codec"
	"github.com/hooknotify/hooknotify/history"
	"github.com/hooknotify/hooknotify/history/sqlite"
)

// consolePresenter renders notifications to stdout; graphical shells
// plug their own Presentation in instead.
type consolePresenter struct{}

func (consolePresenter) Deliver(title, body string, hasMore bool) {
	if hasMore {
		title += " (+more)"
	}
	fmt.Printf("\n%s\n%s\n", title, body)
}

func main() {
	cfg, err := config.GetClient()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var recorder history.Recorder = history.Nop{}
	if cfg.HistoryEnabled {
		store, err := sqlite.Open(cfg.HistoryPath)
		if err != nil {
			fmt.Println(err)
			return
		}
		recorder = store
	}
	defer recorder.Close()

	queue := client.NewDeliveryQueue(client.QueueConfig{
		MinInterval:    cfg.MinInterval,
		MaxDepth:       cfg.MaxQueued,
		HistoryEnabled: cfg.HistoryEnabled,
	}, consolePresenter{}, recorder, log)

	link, err := client.NewLink(client.LinkConfig{
		ServerURL:         cfg.ServerURL,
		AdmissionToken:    cfg.AdmissionToken,
		EncryptionEnabled: cfg.EncryptionEnabled,
		ConnectTimeout:    cfg.ConnectTimeout,
	}, codec.New(cfg.EncryptionKey), queue, log)
	if err != nil {
		fmt.Println(err)
		return
	}

	if err := link.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Connected to %s\n", cfg.ServerURL)

	<-ctx.Done()
	link.Stop()
	// Let already-queued notifications finish pacing out.
	queue.Wait()
}
