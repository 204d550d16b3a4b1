package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/airrecover/storefront/internal/cart"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change the cart",
	RunE:  runCartShow,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cart totals",
	RunE:  runCartShow,
}

var cartIncCmd = &cobra.Command{
	Use:   "inc",
	Short: "Add one set",
	RunE:  runCartClick(cart.ActionIncrease),
}

var cartDecCmd = &cobra.Command{
	Use:   "dec",
	Short: "Remove one set (never below 1)",
	RunE:  runCartClick(cart.ActionDecrease),
}

var cartSetCmd = &cobra.Command{
	Use:   "set [qty]",
	Short: "Set quantity",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartSet,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored cart",
	RunE:  runCartClear,
}

func init() {
	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartIncCmd)
	cartCmd.AddCommand(cartDecCmd)
	cartCmd.AddCommand(cartSetCmd)
	cartCmd.AddCommand(cartClearCmd)
}

func runCartShow(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	printView(cmd.OutOrStdout(), cart.NewDrawer(cmd.Context(), s.manager).View())
	return nil
}

func runCartClick(action cart.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		drawer := cart.NewDrawer(cmd.Context(), s.manager)
		printView(cmd.OutOrStdout(), drawer.Click(cmd.Context(), action))
		return nil
	}
}

func runCartSet(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("quantity must be a number: %q", args[0])
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	printView(cmd.OutOrStdout(), cart.Render(s.manager.SetQuantity(cmd.Context(), qty)))
	return nil
}

func runCartClear(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	s.manager.Clear(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "Warenkorb geleert.")
	return nil
}

func printView(w io.Writer, v cart.View) {
	fmt.Fprintf(w, "%-14s %s\n", "Menge", v.Quantity)
	fmt.Fprintf(w, "%-14s %s\n", "Zwischensumme", v.Subtotal)
	fmt.Fprintf(w, "%-14s %s\n", "Versand", v.Shipping)
	fmt.Fprintf(w, "%-14s %s\n", "Total", v.Total)
}
