package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polis-labs/chronicler/internal/config"
	"github.com/polis-labs/chronicler/internal/repository/dialog"
)

// dialogCmd represents the dialog command
var dialogCmd = &cobra.Command{
	Use:   "dialog",
	Short: "Operator access to persisted dialogs",
	Long:  `Read and manage dialogs recorded into the Chronicle database.`,
}

// dialogGetCmd retrieves a dialog and its utterances by ID
var dialogGetCmd = &cobra.Command{
	Use:   "get [DIALOG_ID]",
	Short: "Get dialog by ID",
	Long:  `Retrieve a dialog and its utterances by ID.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dialogID := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		repo, cleanup, err := newDialogRepository(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		d, err := repo.GetByID(ctx, dialogID)
		if err != nil {
			return fmt.Errorf("failed to get dialog: %w", err)
		}
		utterances, err := repo.GetUtterances(ctx, dialogID)
		if err != nil {
			return fmt.Errorf("failed to get utterances: %w", err)
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			result := map[string]interface{}{
				"dialog":     d,
				"utterances": utterances,
			}
			jsonData, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format JSON: %w", err)
			}
			fmt.Println(string(jsonData))
			return nil
		}

		fmt.Printf("Dialog ID: %s\n", d.ID)
		fmt.Printf("Title: %s\n", d.Title)
		fmt.Printf("Started: %s\n", d.StartedAt.Format(time.RFC3339))
		fmt.Printf("Ended: %s\n", d.EndedAt.Format(time.RFC3339))
		fmt.Printf("Source: %s\n", d.Source)
		fmt.Printf("Participants: %v\n", d.Participants)
		if d.Summary != "" {
			fmt.Printf("\n%s\n", d.Summary)
		}

		fmt.Printf("\n--- Utterances (%d) ---\n", len(utterances))
		for _, u := range utterances {
			fmt.Printf("[%07.2f -> %07.2f] %s\n", u.StartTime, u.EndTime, u.Content)
		}

		return nil
	},
}

// dialogListCmd lists dialogs for a speaker
var dialogListCmd = &cobra.Command{
	Use:   "list [SPEAKER]",
	Short: "List dialogs for a speaker",
	Long:  `List all dialogs a speaker participated in, newest first.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speaker := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		repo, cleanup, err := newDialogRepository(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		dialogs, err := repo.ListBySpeaker(ctx, speaker)
		if err != nil {
			return fmt.Errorf("failed to list dialogs: %w", err)
		}

		if len(dialogs) == 0 {
			fmt.Printf("No dialogs found for speaker: %s\n", speaker)
			return nil
		}

		fmt.Printf("Found %d dialog(s) for speaker %s:\n\n", len(dialogs), speaker)
		for _, d := range dialogs {
			fmt.Printf("ID: %s\n", d.ID)
			fmt.Printf("Title: %s\n", d.Title)
			fmt.Printf("Started: %s\n", d.StartedAt.Format(time.RFC3339))
			fmt.Println("---")
		}

		return nil
	},
}

// dialogDeleteCmd deletes a dialog and its utterances
var dialogDeleteCmd = &cobra.Command{
	Use:   "delete [DIALOG_ID]",
	Short: "Delete dialog by ID",
	Long:  `Delete a dialog and all its utterances.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dialogID := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Confirm deletion
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			fmt.Printf("Are you sure you want to delete dialog %s? Use --confirm flag to proceed.\n", dialogID)
			return nil
		}

		repo, cleanup, err := newDialogRepository(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := repo.Delete(ctx, dialogID); err != nil {
			return fmt.Errorf("failed to delete dialog: %w", err)
		}

		fmt.Printf("✅ Dialog %s deleted successfully!\n", dialogID)
		return nil
	},
}

// newDialogRepository wires a dialog repository from the configuration
func newDialogRepository(ctx context.Context) (dialog.Repository, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPool, err := config.NewDatabasePool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return dialog.NewRepository(dbPool), dbPool.Close, nil
}

func init() {
	dialogGetCmd.Flags().String("format", "text", "Output format: text, json")
	dialogDeleteCmd.Flags().Bool("confirm", false, "Confirm deletion without prompt")

	dialogCmd.AddCommand(dialogGetCmd)
	dialogCmd.AddCommand(dialogListCmd)
	dialogCmd.AddCommand(dialogDeleteCmd)
	rootCmd.AddCommand(dialogCmd)
}
