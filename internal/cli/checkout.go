package cli

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/airrecover/storefront/internal/cart"
	"github.com/airrecover/storefront/internal/checkout"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Pay for the cart with the selected method",
	Long: `Shows the checkout summary and starts a payment session.

On success the payment page URL is printed; open it to pay.`,
	RunE: runCheckout,
}

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy now with card",
	RunE:  runBuy,
}

var thankyouCmd = &cobra.Command{
	Use:   "thankyou",
	Short: "Confirm the finished order and reset the cart",
	RunE:  runThankyou,
}

func init() {
	checkoutCmd.Flags().String("method", "", "Payment method: card, twint or paypal (default card)")
}

// newControl собирает кнопку оплаты, которая печатает URL провайдера вместо редиректа.
func newControl(s *session, w io.Writer, labels checkout.Labels) *checkout.SubmitControl {
	logger := log.WithField("component", "cli")
	initiator := checkout.NewInitiator(s.baseURL, checkout.WithInitiatorLogger(logger))
	navigate := checkout.NavigatorFunc(func(url string) {
		fmt.Fprintf(w, "Weiter zur Zahlung: %s\n", url)
	})
	return checkout.NewSubmitControl(s.manager, initiator, navigate, labels, logger)
}

func runCheckout(cmd *cobra.Command, _ []string) error {
	method, _ := cmd.Flags().GetString("method")

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	printView(out, cart.NewSummary(cmd.Context(), s.manager).View())

	control := newControl(s, out, checkout.FormLabels)
	fmt.Fprintln(out, checkout.FormLabels.Busy)
	if err := control.Submit(cmd.Context(), method); err != nil {
		fmt.Fprintln(out, control.Message())
		return err
	}
	return nil
}

func runBuy(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	control := newControl(s, out, checkout.DirectLabels)
	fmt.Fprintln(out, checkout.DirectLabels.Busy)
	if err := control.SubmitDirect(cmd.Context()); err != nil {
		fmt.Fprintln(out, control.Message())
		return err
	}
	return nil
}

func runThankyou(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	cart.NewConfirmation(s.manager).Show(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "Danke für deine Bestellung!")
	return nil
}
