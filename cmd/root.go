package cmd

import (
	"fmt"
	"os"

	"account-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "account-sync",
	Short: "Chart of accounts synchronizer",
	Long: `account-sync copies a chart of accounts from a source ERPNext site to a
target site, parents before children, creating missing parents and updating
differing fields. Balances and other protected fields are never written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console logger so CLI failures read the same as run logs
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
