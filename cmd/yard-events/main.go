// Command yard-events tails the workflow event topic and logs each event.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	"yardops/config"
	"yardops/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// envelope is the subset of a published event the tail prints.
type envelope struct {
	Type string    `json:"type"`
	Kind string    `json:"kind"`
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("yard-events", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "yard-events: %v\n", err)
		return 1
	}
	if len(cfg.Kafka.Brokers) == 0 {
		fmt.Fprintln(stderr, "yard-events: KAFKA_BROKERS is not set")
		return 1
	}
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Topic:          cfg.Kafka.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn("close kafka reader", zap.Error(err))
		}
	}()

	log.Info("tailing events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return 0
			}
			log.Error("read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return 0
			case <-time.After(5 * time.Second):
			}
			continue
		}
		var ev envelope
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Warn("undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		log.Info("event",
			zap.String("type", ev.Type),
			zap.String("kind", ev.Kind),
			zap.String("id", ev.ID),
			zap.Time("at", ev.At),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}
