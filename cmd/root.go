package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chronicler",
	Short: "Conversational transcription bot for the Chronicle",
	Long: `Chronicler walks a user through a transcription wizard over a
messaging bot, runs Whisper transcriptions in the background and
optionally records the resulting dialog into the Chronicle database.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
