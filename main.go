package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/john/tmichat/internal/config"
	"github.com/john/tmichat/internal/health"
	"github.com/john/tmichat/internal/irc"
	"github.com/john/tmichat/internal/message"
	"github.com/john/tmichat/internal/recorder"
	"github.com/john/tmichat/internal/twitch"
	"github.com/john/tmichat/internal/uploader"
)

func main() {
	log.Println("tmichat starting...")

	// Get config path from environment variable or use default
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Refuse bad credentials before touching the network
	creds, err := twitch.NewCredentials(cfg.Twitch.OAuth, cfg.Twitch.Nick)
	if err != nil {
		log.Fatalf("Invalid Twitch credentials: %v", err)
	}
	log.Printf("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := twitch.New(twitch.Config{
		Addr:         cfg.Twitch.Addr,
		SendInterval: cfg.Twitch.SendInterval(),
		DialTimeout:  cfg.Twitch.DialTimeout(),
		ReadTimeout:  cfg.Twitch.ReadTimeout(),
	}, creds)
	conn.OnSendError(func(cmd string, err error) {
		// Only the verb is logged so PASS never leaks the token
		verb, _, _ := strings.Cut(cmd, " ")
		log.Printf("Error sending %s command: %v", verb, err)
	})
	if len(cfg.Twitch.Emotes) > 0 {
		conn.Session().SetEmoteTable(cfg.Twitch.Emotes)
		log.Printf("Loaded %d emotes", len(cfg.Twitch.Emotes))
	}

	rec := recorder.New(
		cfg.Recorder.OutputDir,
		cfg.Recorder.BufferSize,
		cfg.Recorder.RotateMinutes,
		cfg.Recorder.RotateMegabytes,
	)

	var up *uploader.Uploader
	if cfg.S3.UploadsEnabled() {
		up, err = uploader.New(ctx, uploader.Options{
			Bucket:               cfg.S3.Bucket,
			Region:               cfg.S3.Region,
			Endpoint:             cfg.S3.Endpoint,
			RoleARN:              cfg.S3.RoleARN,
			WebIdentityTokenFile: cfg.S3.WebIdentityTokenFile,
			AccessKeyID:          cfg.S3.AccessKeyID,
			SecretAccessKey:      cfg.S3.SecretAccessKey,
			DeleteAfterUpload:    cfg.Uploader.DeleteAfterUpload,
			MaxRetries:           cfg.Uploader.MaxRetries,
		})
		if err != nil {
			log.Fatalf("Failed to create uploader: %v", err)
		}
	} else {
		log.Println("No S3 bucket configured; chat logs stay in", cfg.Recorder.OutputDir)
	}

	healthServer := health.New(cfg.Health.Addr, conn)

	events := make(chan *irc.Event, cfg.Recorder.BufferSize)
	messages := make(chan message.Message, cfg.Recorder.BufferSize)
	files := make(chan string, 100)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := conn.Start(gctx, events)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Twitch connection error: %v", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return dispatch(gctx, conn, cfg.Twitch.Channel, events, messages)
	})

	g.Go(func() error {
		if err := rec.Start(gctx, messages, files); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Recorder error: %v", err)
			return err
		}
		return nil
	})

	if up != nil {
		// Logs left by an earlier run go first
		pending, err := uploader.PendingFiles(cfg.Recorder.OutputDir)
		if err != nil {
			log.Printf("Warning: Failed to scan for existing files: %v", err)
		}
		for _, path := range pending {
			select {
			case files <- path:
			default:
				log.Printf("Warning: upload queue full, skipping %s until next start", path)
			}
		}

		g.Go(func() error {
			if err := up.Start(gctx, files); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Uploader error: %v", err)
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return healthServer.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutdown signal received, initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}
		return nil
	})

	log.Println("All components started successfully")

	if err := g.Wait(); err != nil {
		log.Printf("tmichat stopped: %v", err)
		os.Exit(1)
	}
	log.Println("tmichat stopped")
}

// joiner is the part of the connector dispatch drives
type joiner interface {
	Join(channel string) error
}

// dispatch reacts to connection events: it joins the configured channel once
// logged in and forwards chat activity to the recorder.
func dispatch(ctx context.Context, conn joiner, channel string, events <-chan *irc.Event, messages chan<- message.Message) error {
	// Tagged lines whose ids contain "001" classify as ConnectAck too, so
	// only the first one may trigger a JOIN.
	joined := false
	for {
		select {
		case ev := <-events:
			switch ev.Kind() {
			case irc.ConnectAck:
				if joined {
					break
				}
				if err := conn.Join(channel); err != nil {
					log.Printf("Error joining %s: %v", channel, err)
				} else {
					joined = true
					log.Printf("Joined channel: %s", channel)
				}
			case irc.LocalError:
				log.Printf("Local error: %s", ev.Raw())
			}

			if !message.Recordable(ev.Kind()) {
				continue
			}
			select {
			case messages <- message.FromEvent(ev, time.Now()):
			case <-ctx.Done():
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}
