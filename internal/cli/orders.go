package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/spf13/cobra"

	"github.com/airrecover/storefront/internal/messaging/kafka"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Follow paid orders",
}

var ordersWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print checkout.completed events from Kafka until interrupted",
	RunE:  runOrdersWatch,
}

func init() {
	ordersCmd.AddCommand(ordersWatchCmd)

	ordersWatchCmd.Flags().String("brokers", "localhost:9092", "Comma-separated Kafka brokers")
	ordersWatchCmd.Flags().String("topic", kafka.TopicCheckoutEvents, "Checkout events topic")
	ordersWatchCmd.Flags().String("group", "storefront-cli", "Consumer group")
}

func runOrdersWatch(cmd *cobra.Command, _ []string) error {
	brokers, _ := cmd.Flags().GetString("brokers")
	topic, _ := cmd.Flags().GetString("topic")
	group, _ := cmd.Flags().GetString("group")

	consumer, err := kafka.NewConsumer(strings.Split(brokers, ","), group, []string{topic}, printOrder(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Warte auf Bestellungen in %s (Ctrl+C zum Beenden)...\n", topic)

	<-ctx.Done()
	return consumer.Stop()
}

// printOrder печатает оплаченный заказ одной строкой.
func printOrder(w io.Writer) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := kafka.ParseCheckoutEvent(message)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %-8s %-8s qty=%d  %s %d.%02d  session=%s\n",
			event.Timestamp.Local().Format("2006-01-02 15:04:05"),
			event.Provider,
			event.Method,
			event.Qty,
			event.Currency,
			event.AmountTotal/100,
			event.AmountTotal%100,
			event.SessionID,
		)
		return nil
	}
}
