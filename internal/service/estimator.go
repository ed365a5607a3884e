package service

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/polis-labs/chronicler/internal/errors"
	"github.com/polis-labs/chronicler/internal/service/common"
)

// DurationEstimator computes an advisory estimate of how long a
// transcription will take for a given audio file and model size
type DurationEstimator interface {
	// Estimate returns the estimated transcription time in whole seconds
	Estimate(ctx context.Context, audioPath string, modelSize string) (int, error)
}

// Default per-model tables: real-time speed multiplier and one-off model
// load penalty in seconds
var (
	defaultSpeedFactors = map[string]float64{
		"tiny":   0.25,
		"base":   0.5,
		"small":  1.0,
		"medium": 2.0,
		"large":  4.0,
	}

	defaultLoadTimes = map[string]float64{
		"tiny":   1,
		"base":   2,
		"small":  4,
		"medium": 8,
		"large":  15,
	}
)

// durationEstimator implements DurationEstimator using ffprobe for the
// audio duration and static per-model tables for the speed math
type durationEstimator struct {
	cmdRunner    common.CmdRunner
	speedFactors map[string]float64
	loadTimes    map[string]float64
}

// NewDurationEstimator creates an estimator with the built-in tables
func NewDurationEstimator() DurationEstimator {
	return &durationEstimator{
		cmdRunner:    common.NewCmdRunner(),
		speedFactors: defaultSpeedFactors,
		loadTimes:    defaultLoadTimes,
	}
}

// NewDurationEstimatorWithTables creates an estimator with custom tables
// loaded from JSON config files; nil maps fall back to the defaults
func NewDurationEstimatorWithTables(cmdRunner common.CmdRunner, speedFactors, loadTimes map[string]float64) DurationEstimator {
	if speedFactors == nil {
		speedFactors = defaultSpeedFactors
	}
	if loadTimes == nil {
		loadTimes = defaultLoadTimes
	}
	return &durationEstimator{
		cmdRunner:    cmdRunner,
		speedFactors: speedFactors,
		loadTimes:    loadTimes,
	}
}

// LoadEstimatorTable reads a model-size -> factor table from a JSON file
func LoadEstimatorTable(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read estimator table")
	}
	var table map[string]float64
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to parse estimator table")
	}
	return table, nil
}

// Estimate returns duration * model speed multiplier + model load penalty
func (e *durationEstimator) Estimate(ctx context.Context, audioPath string, modelSize string) (int, error) {
	if audioPath == "" {
		return 0, errors.New(errors.CodeInvalidArg, "audio path is required")
	}

	duration, err := e.audioDuration(ctx, audioPath)
	if err != nil {
		return 0, err
	}

	multiplier, ok := e.speedFactors[modelSize]
	if !ok {
		multiplier = 1.0
	}
	loadPenalty, ok := e.loadTimes[modelSize]
	if !ok {
		loadPenalty = 1.0
	}

	return int(math.Round(duration*multiplier + loadPenalty)), nil
}

// ffprobeOutput is the subset of ffprobe -show_entries format=duration output
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// audioDuration probes the audio file length in seconds using ffprobe
func (e *durationEstimator) audioDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	}

	out, err := e.cmdRunner.Run(ctx, "ffprobe", args...)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeExternal, "ffprobe failed to read audio duration")
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "failed to parse ffprobe output")
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "invalid duration in ffprobe output")
	}

	return duration, nil
}
