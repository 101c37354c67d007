package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "shipstream",
		Short:        "Shipment file processing services",
		SilenceUsage: true,
	}

	root.AddCommand(
		newDivisionCmd(),
		newPackerCmd(),
		newNotifierCmd(),
		newMigrateCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
