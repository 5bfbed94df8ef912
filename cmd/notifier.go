/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/findly-app/apiserver/config"
	"github.com/findly-app/apiserver/internal/logging"
	"github.com/findly-app/apiserver/internal/mq"
	"github.com/findly-app/apiserver/internal/server"
	"github.com/findly-app/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// notifierCmd represents the notifier command. It drains the
// notifications channel and logs each event; a delivery integration
// (email, push) would hang off the same subscription.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume and log notification events",
	Long: `Subscribes to the notifications channel of the configured broker
and logs every event. Usage:

	findly notifier
`,
	Run: func(cmd *cobra.Command, args []string) {
		logging.Setup()
		cfg := config.LoadConfig()

		broker, err := server.NewBroker(cmd.Context(), cfg.Broker)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect broker: %v\n", err)
			os.Exit(1)
		}
		if broker == nil {
			fmt.Fprintln(os.Stderr, "no broker configured, set BROKER_BACKEND")
			os.Exit(1)
		}
		defer broker.Close()

		slog.Info("notifier listening", "channel", services.NotificationsChannel)
		err = broker.Subscribe(cmd.Context(), services.NotificationsChannel, func(ctx context.Context, msg mq.Message) error {
			var event services.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				slog.Error("malformed notification event", "id", msg.ID, "error", err)
				return nil
			}
			slog.Info("notification",
				"type", event.Type,
				"user_id", event.UserID,
				"item_id", event.ItemID,
				"claim_id", event.ClaimID,
				"status", event.Status,
				"matched_item_id", event.MatchedItemID,
			)
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "notifier error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
