// Package subtitles transcribes voiceovers into word timings and writes the
// ASS subtitle files burned in by the overlay stage.
package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
)

// Word is one transcribed word with its timing in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcriber returns word level timings for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Word, error)
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type whisperTranscription struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
}

// WhisperCLI runs the whisper command line tool with word timestamps and
// reads back its JSON output.
type WhisperCLI struct {
	runner    render.Runner
	Model     string
	Language  string
	OutputDir string
}

// NewWhisperCLI returns a transcriber writing its JSON into outputDir.
func NewWhisperCLI(runner render.Runner, model, language, outputDir string) *WhisperCLI {
	if model == "" {
		model = "base"
	}
	return &WhisperCLI{runner: runner, Model: model, Language: language, OutputDir: outputDir}
}

// Args returns the whisper arguments for audioPath.
func (w *WhisperCLI) Args(audioPath string) []string {
	args := []string{audioPath, "--model", w.Model}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}
	return append(args,
		"--output_format", "json",
		"--word_timestamps", "True",
		"--output_dir", w.OutputDir,
	)
}

// Transcribe runs whisper and returns every word of every segment in order.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) ([]Word, error) {
	if err := os.MkdirAll(w.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcription directory: %w", err)
	}
	if err := w.runner.Run(ctx, "transcribe", w.Args(audioPath)); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	words, err := ReadWhisperJSON(filepath.Join(w.OutputDir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}
	return words, nil
}

// ReadWhisperJSON extracts the words of a whisper JSON transcription.
func ReadWhisperJSON(path string) ([]Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var transcription whisperTranscription
	if err := json.Unmarshal(data, &transcription); err != nil {
		return nil, err
	}

	var words []Word
	for _, segment := range transcription.Segments {
		words = append(words, segment.Words...)
	}
	return words, nil
}
