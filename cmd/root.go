package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-verification",
	Short: "Payment verification and dispute resolution service",
	Long:  "A service that records appointment payments, runs the staff verification queue, and resolves payment disputes through tiered review.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
