/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/config"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/logging"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/mq"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect auth events on the message broker",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log auth events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Env)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open broker: %w", err)
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer backend.Close()

		logger.Info("tailing events", slog.String("channel", cfg.MQ.Channel))
		err = mq.ConsumeEvents(ctx, backend, cfg.MQ.Channel, logger, func(_ context.Context, e mq.Event) error {
			logger.Info("event",
				slog.String("type", string(e.Type)),
				slog.String("user_id", e.UserID),
				slog.Time("occurred_at", e.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
