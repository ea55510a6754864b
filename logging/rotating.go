package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const logFilePrefix = "lookup-"

var numberedFileRe = regexp.MustCompile(`^lookup-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over weekly log files, split further when a
// file reaches maxFileSize.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex
	now         func() time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

// NewRotatingLogger creates a rotating logger and opens the file for the current week
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	rl.mu.Lock()
	err := rl.rotate(weekKey(rl.now()))
	rl.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go rl.cleanupLoop(24 * time.Hour)
	return rl, nil
}

// weekKey returns the ISO week in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// rotate opens the file for targetWeek (caller must hold mu)
func (rl *RotatingLogger) rotate(targetWeek string) error {
	if rl.currentFile != nil {
		_ = rl.currentFile.Close()
		rl.currentFile = nil
	}

	full := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize && rl.currentWeek == targetWeek
	fileName := rl.pickFile(targetWeek, full)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek
	rl.currentSize.Store(0)
	if info, err := file.Stat(); err == nil {
		rl.currentSize.Store(info.Size())
	}
	return nil
}

// pickFile returns the file to append to for week. When full is set the
// current file reached the size limit and the next numbered file is used.
func (rl *RotatingLogger) pickFile(week string, full bool) string {
	highest, path, size := rl.highestNumbered(week)
	if !full {
		if highest > 0 {
			if rl.maxFileSize == 0 || size < rl.maxFileSize {
				return filepath.Base(path)
			}
		} else {
			base := fmt.Sprintf("%s%s.log", logFilePrefix, week)
			info, err := os.Stat(filepath.Join(rl.logDir, base))
			if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
				return base
			}
		}
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest+1)
}

// highestNumbered finds the numbered file with the largest sequence for week
func (rl *RotatingLogger) highestNumbered(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, fmt.Sprintf("%s%s_??.log", logFilePrefix, week)))

	highest := 0
	var lastPath string
	var lastSize int64
	for _, match := range matches {
		m := numberedFileRe.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= highest {
			continue
		}
		highest = num
		lastPath = match
		lastSize = 0
		if info, err := os.Stat(match); err == nil {
			lastSize = info.Size()
		}
	}
	return highest, lastPath, lastSize
}

// Write writes p to the current log file, rotating on week change or size limit
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(rl.now())
	needsRotation := rl.currentWeek != week
	if !needsRotation && rl.maxFileSize > 0 {
		size := rl.currentSize.Load()
		if size > 0 && size+int64(len(p)) > rl.maxFileSize {
			rl.currentSize.Store(rl.maxFileSize)
			needsRotation = true
		}
	}

	if needsRotation {
		if err := rl.rotate(week); err != nil {
			return 0, err
		}
	}

	if rl.currentFile == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

func (rl *RotatingLogger) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer close(rl.cleanupDone)

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			if _, err := rl.cleanupOldLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
			}
		}
	}
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rl.now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close stops background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	select {
	case <-rl.cleanupDone:
	case <-time.After(time.Second):
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}
