package main

import (
	"fmt"
	"os"

	"appraisal-backend/internal/config"

	"github.com/spf13/cobra"
)

// @title                       Appraisal API
// @version                     1.0
// @description                 Vehicle appraisals shared between dealerships and wholesalers.
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:           "appraisal",
		Short:         "Appraisal marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
