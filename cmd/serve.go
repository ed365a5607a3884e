package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/bot"
	"github.com/polis-labs/chronicler/internal/config"
	"github.com/polis-labs/chronicler/internal/repository/dialog"
	"github.com/polis-labs/chronicler/internal/service"
	"github.com/polis-labs/chronicler/internal/service/common"
	"github.com/polis-labs/chronicler/internal/session"
	"github.com/polis-labs/chronicler/internal/transport"
)

// serveCmd runs the long-lived bot process
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Chronicler bot",
	Long:  `Start the long-lived bot process: poll the messaging transport, drive wizard sessions and run transcription jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer log.Sync()

		// Load configuration
		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Create database connection
		dbPool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		// Transport
		tg, err := transport.NewTelegram(cfg.TelegramBotToken, log)
		if err != nil {
			return fmt.Errorf("failed to create transport: %w", err)
		}

		// Estimator tables, overridable from JSON config files
		speedFactors, loadTimes, err := loadEstimatorTables(cfg)
		if err != nil {
			return err
		}

		// Repositories and services
		dialogRepo := dialog.NewRepository(dbPool)
		chronicle := service.NewChronicleService(dialogRepo)
		whisper := service.NewWhisperService()
		estimator := service.NewDurationEstimatorWithTables(common.NewCmdRunner(), speedFactors, loadTimes)

		// Conversational core
		ui := bot.NewUI(tg)
		orchestrator := service.NewOrchestrator(tg, ui, whisper, estimator, chronicle, cfg.AudioDir, cfg.TranscriptsDir, log)
		store := session.NewStore()
		watcher := session.NewWatcher(store, ui, orchestrator, cfg.Timeout(), log)
		machine := session.NewMachine(store, ui, orchestrator, watcher, log)
		router := bot.NewRouter(machine, ui, log)

		log.Info("chronicler starting",
			zap.Int("timeout_seconds", cfg.TimeoutSeconds),
			zap.String("audio_dir", cfg.AudioDir),
			zap.String("transcripts_dir", cfg.TranscriptsDir))

		runErr := tg.Run(ctx, router)

		// Let in-flight transcription jobs finish before the pool closes
		log.Info("draining running jobs")
		orchestrator.Drain()

		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("transport loop failed: %w", runErr)
		}

		log.Info("chronicler stopped")
		return nil
	},
}

// loadEstimatorTables reads the optional JSON override tables
func loadEstimatorTables(cfg *config.Config) (speedFactors, loadTimes map[string]float64, err error) {
	if cfg.SpeedFactorsPath != "" {
		speedFactors, err = service.LoadEstimatorTable(cfg.SpeedFactorsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load speed factors: %w", err)
		}
	}
	if cfg.LoadTimesPath != "" {
		loadTimes, err = service.LoadEstimatorTable(cfg.LoadTimesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load load times: %w", err)
		}
	}
	return speedFactors, loadTimes, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
