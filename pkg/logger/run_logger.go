package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// RunLogger writes the human readable log of one composition run
type RunLogger struct {
	runID     string
	title     string
	logPath   string
	file      *os.File
	mu        sync.Mutex
	startTime time.Time
}

// NewRunLogger creates <logDir>/<runID>/log.txt, replacing any previous log
// for the same run id.
func NewRunLogger(logDir, runID, title string) (*RunLogger, error) {
	dir := filepath.Join(logDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, "log.txt")
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	rl := &RunLogger{
		runID:     runID,
		title:     title,
		logPath:   logPath,
		file:      file,
		startTime: time.Now(),
	}
	rl.writeHeader()
	return rl, nil
}

func (rl *RunLogger) writeHeader() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	header := fmt.Sprintf(`================================================================================
SLIDESHOW COMPOSITOR - RUN LOG
Run ID: %s
Title: %s
Started: %s
================================================================================

`, rl.runID, rl.title, rl.startTime.Format("2006-01-02 15:04:05 MST"))

	rl.write(header)
}

// Phase logs the start of a pipeline phase
func (rl *RunLogger) Phase(name string, description string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	msg := fmt.Sprintf("\n[%s] ========== PHASE: %s ==========\n", rl.elapsed(), name)
	if description != "" {
		msg += fmt.Sprintf("Description: %s\n", description)
	}
	rl.write(msg + "\n")
}

func (rl *RunLogger) Info(format string, args ...interface{}) {
	rl.log("INFO", format, args...)
}

func (rl *RunLogger) Debug(format string, args ...interface{}) {
	rl.log("DEBUG", format, args...)
}

func (rl *RunLogger) Warn(format string, args ...interface{}) {
	rl.log("WARN", format, args...)
}

func (rl *RunLogger) Error(format string, args ...interface{}) {
	rl.log("ERROR", format, args...)
}

func (rl *RunLogger) Success(format string, args ...interface{}) {
	rl.log("SUCCESS", format, args...)
}

// Property logs a key-value property
func (rl *RunLogger) Property(key string, value interface{}) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.write(fmt.Sprintf("[%s] PROPERTY: %s = %v\n", rl.elapsed(), key, value))
}

// Size logs a byte count as a property in human units.
func (rl *RunLogger) Size(key string, bytes int64) {
	if bytes < 0 {
		bytes = 0
	}
	rl.Property(key, humanize.Bytes(uint64(bytes)))
}

// Command logs a renderer command line before it runs
func (rl *RunLogger) Command(cmdStr string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.write(fmt.Sprintf("[%s] COMMAND: %s\n", rl.elapsed(), cmdStr))
}

// Output logs renderer output. Empty output is dropped.
func (rl *RunLogger) Output(output string) {
	if output == "" {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.write(fmt.Sprintf("[%s] OUTPUT:\n%s\n", rl.elapsed(), output))
}

func (rl *RunLogger) log(level string, format string, args ...interface{}) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.write(fmt.Sprintf("[%s] %s: %s\n", rl.elapsed(), level, fmt.Sprintf(format, args...)))
}

func (rl *RunLogger) elapsed() time.Duration {
	return time.Since(rl.startTime).Round(time.Millisecond)
}

// write must be called with mu held.
func (rl *RunLogger) write(s string) {
	if rl.file == nil {
		return
	}
	rl.file.WriteString(s)
	rl.file.Sync()
}

// Close writes the footer and closes the file. Later writes are dropped.
func (rl *RunLogger) Close(success bool, finalMessage string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.file == nil {
		return nil
	}

	status := "COMPLETED SUCCESSFULLY"
	if !success {
		status = "FAILED"
	}

	footer := fmt.Sprintf(`
================================================================================
RUN %s
Duration: %s
Completed: %s
%s
================================================================================
`, status, rl.elapsed(), time.Now().Format("2006-01-02 15:04:05 MST"), finalMessage)

	rl.write(footer)
	err := rl.file.Close()
	rl.file = nil
	return err
}

// Path returns the path to the log file
func (rl *RunLogger) Path() string {
	return rl.logPath
}
