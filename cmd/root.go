package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "brickwatch",
	Short: "LEGO price history and deal tracker",
	Long:  "Reads current LEGO set prices from merchant pages, keeps an append-only price history and emails the price drops worth knowing about.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials may live in a .env file next to config.yaml.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
