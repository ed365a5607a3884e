package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/polis-labs/chronicler/internal/errors"
	"github.com/polis-labs/chronicler/internal/model"
	"github.com/polis-labs/chronicler/internal/service/common"
)

// WhisperService defines operations for Whisper transcription
type WhisperService interface {
	// TranscribeAudio transcribes audio file using Whisper CLI
	TranscribeAudio(ctx context.Context, audioPath string, opts model.TranscribeOptions) (*model.WhisperResult, error)
}

// whisperService implements WhisperService using Whisper CLI
type whisperService struct {
	cmdRunner common.CmdRunner
}

// NewWhisperService creates a new WhisperService with default CmdRunner
func NewWhisperService() WhisperService {
	return &whisperService{
		cmdRunner: common.NewCmdRunner(),
	}
}

// NewWhisperServiceWithCmdRunner creates a new WhisperService with custom CmdRunner (for testing)
func NewWhisperServiceWithCmdRunner(cmdRunner common.CmdRunner) WhisperService {
	return &whisperService{
		cmdRunner: cmdRunner,
	}
}

// TranscribeAudio transcribes audio file using Whisper CLI
func (s *whisperService) TranscribeAudio(ctx context.Context, audioPath string, opts model.TranscribeOptions) (*model.WhisperResult, error) {
	// Validate input
	if audioPath == "" {
		return nil, errors.New(errors.CodeInvalidArg, "audio path is required")
	}
	if opts.ModelSize == "" {
		return nil, errors.New(errors.CodeInvalidArg, "model size is required")
	}

	// Create temp directory for the intermediate segment export
	tempDir, err := os.MkdirTemp("", "chronicler-whisper-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	// Prepare whisper command arguments
	args := []string{
		audioPath,
		"--model", opts.ModelSize,
		"--output_format", "json",
		"--output_dir", tempDir,
	}

	// Add language parameter only if not auto-detection
	if opts.Language != "" && opts.Language != "auto" {
		args = append(args, "--language", opts.Language)
	}

	// Omit --temperature when the owner kept the engine default
	if opts.Temperature != nil {
		args = append(args, "--temperature", strconv.FormatFloat(*opts.Temperature, 'f', -1, 64))
	}

	// Execute whisper command
	_, err = s.cmdRunner.Run(ctx, "whisper", args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, s.formatWhisperError(err, audioPath, opts))
	}

	// Read the output JSON file
	baseName := filepath.Base(audioPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	jsonPath := filepath.Join(tempDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read whisper output")
	}

	// Parse JSON into WhisperResult
	var result model.WhisperResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to parse whisper output")
	}

	return &result, nil
}

// formatWhisperError provides user-friendly error messages for Whisper failures
func (s *whisperService) formatWhisperError(err error, audioPath string, opts model.TranscribeOptions) string {
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "No such file or directory") && strings.Contains(errMsg, "whisper"):
		return "Whisper is not installed. Please install OpenAI Whisper: pip install openai-whisper"
	case strings.Contains(errMsg, "No module named"):
		return "Whisper dependencies missing. Please reinstall: pip install --upgrade openai-whisper"
	case strings.Contains(errMsg, "not enough memory") || strings.Contains(errMsg, "OutOfMemoryError"):
		return fmt.Sprintf("insufficient memory for model '%s'. Try using a smaller model (tiny, base, small)", opts.ModelSize)
	case strings.Contains(errMsg, "Invalid language"):
		return fmt.Sprintf("unsupported language '%s'. Use language codes like 'en', 'ru', 'es' or 'auto'", opts.Language)
	case strings.Contains(errMsg, "Could not load model"):
		return fmt.Sprintf("failed to load Whisper model '%s'. The model may need to be downloaded on first use", opts.ModelSize)
	case strings.Contains(errMsg, "File not found") || strings.Contains(errMsg, "No such file"):
		return fmt.Sprintf("audio file not found: %s", filepath.Base(audioPath))
	case strings.Contains(errMsg, "Unsupported format") || strings.Contains(errMsg, "format not supported"):
		return fmt.Sprintf("unsupported audio format: %s", filepath.Ext(audioPath))
	default:
		return fmt.Sprintf("transcription failed with model '%s' - %s", opts.ModelSize, errMsg)
	}
}
