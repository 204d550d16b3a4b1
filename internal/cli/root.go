package cli

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/airrecover/storefront/internal/cart"
	"github.com/airrecover/storefront/internal/storage/sqlite"
)

const (
	defaultURL     = "http://localhost:3000"
	defaultProfile = "~/.airrecover/profile.db"
)

var (
	verbose bool
	rootCmd *cobra.Command
	// settings связывает флаги с переменными STOREFRONT_URL и STOREFRONT_PROFILE.
	settings = viper.New()
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "storefront-cli",
		Short: "AirRecover storefront client",
		Long: `storefront-cli is a terminal client for the AirRecover shop.

It keeps the cart in a local profile (like a browser's localStorage for the shop's origin)
and starts checkout against the storefront server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.String("url", defaultURL, "Storefront base URL (env STOREFRONT_URL)")
	flags.String("profile", defaultProfile, "Local profile database (env STOREFRONT_PROFILE)")

	settings.SetEnvPrefix("STOREFRONT")
	_ = settings.BindPFlag("url", flags.Lookup("url"))
	_ = settings.BindPFlag("profile", flags.Lookup("profile"))
	_ = settings.BindEnv("url")
	_ = settings.BindEnv("profile")

	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(thankyouCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(loadtestCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute(version string) error {
	buildVersion = version
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// session открывает корзину профиля для текущего origin магазина.
type session struct {
	baseURL string
	manager *cart.Manager
	close   func()
}

// openSession открывает профиль; в тестах подменяется хранилищем в памяти.
var openSession = func(ctx context.Context) (*session, error) {
	baseURL := settings.GetString("url")
	store, err := sqlite.Open(ctx, settings.GetString("profile"))
	if err != nil {
		return nil, err
	}

	logger := log.WithField("component", "cli")
	return &session{
		baseURL: baseURL,
		manager: cart.NewManager(sqlite.NewCartStore(store, baseURL), cart.WithLogger(logger)),
		close: func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close profile")
			}
		},
	}, nil
}
