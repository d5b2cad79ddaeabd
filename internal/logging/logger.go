// Package logging implements the per-watch append-only log file: leveled,
// ANSI-colored lines, and a reverse-chunked tail reader used by the stats
// aggregator's "last logs" preview and the daemon's startup diagnostics.
package logging

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/re-cinq/fleetd/internal/fileutil"
)

// Level is a log severity.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelJobStart Level = "JOB START"
	LevelJobEnd   Level = "JOB END"
)

// ANSI background color codes per level.
const (
	bgBlue    = "\033[44m"
	bgOrange  = "\033[48;5;208m"
	bgRed     = "\033[41m"
	bgGreen   = "\033[42m"
	bgMagenta = "\033[45m"
	fgWhite   = "\033[1;37m"
	reset     = "\033[0m"
)

func bgFor(l Level) string {
	switch l {
	case LevelInfo:
		return bgBlue
	case LevelWarning:
		return bgOrange
	case LevelError:
		return bgRed
	case LevelJobStart:
		return bgGreen
	case LevelJobEnd:
		return bgMagenta
	default:
		return bgBlue
	}
}

// Logger is a single append-only log file guarded by a mutex, one per watch.
type Logger struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	colorEnable bool
}

// New opens (creating if needed) the log file for the given watch id.
func New(id string) (*Logger, error) {
	if err := fileutil.EnsureDir(fileutil.LogsDir()); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	path := fileutil.LogPath(id)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &Logger{
		file:        f,
		path:        path,
		colorEnable: os.Getenv("FLEET_NO_COLOR") == "",
	}, nil
}

// Placeholder returns a Logger with no open file: every write to it is
// discarded, and it never opens or reopens a log file.
func Placeholder() *Logger {
	return &Logger{file: nil, path: os.DevNull, colorEnable: false}
}

// Path returns the underlying log file path.
func (l *Logger) Path() string { return l.path }

func (l *Logger) paint(level Level) string {
	name := string(level)
	if !l.colorEnable {
		return name
	}
	return bgFor(level) + fgWhite + name + reset
}

// Log appends one formatted, timestamped line to the log file.
func (l *Logger) Log(level Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	line := fmt.Sprintf("[%s] %s: %s\n", time.Now().Format("2006-01-02 15:04:05"), l.paint(level), msg)
	_, _ = l.file.WriteString(line)
}

func (l *Logger) Info(msg string)     { l.Log(LevelInfo, msg) }
func (l *Logger) Warning(msg string)  { l.Log(LevelWarning, msg) }
func (l *Logger) Error(msg string)    { l.Log(LevelError, msg) }
func (l *Logger) JobStart(msg string) { l.Log(LevelJobStart, msg) }
func (l *Logger) JobEnd(msg string)   { l.Log(LevelJobEnd, msg) }

// Clean removes the log file from disk.
func (l *Logger) Clean() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	return os.Remove(l.path)
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// RemoveByID deletes the log file for a watch id without needing a live
// Logger, used by `fleet rm`.
func RemoveByID(id string) error {
	err := os.Remove(fileutil.LogPath(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// tailChunkSize is the read window used when scanning a log file backwards.
const tailChunkSize = 8192

// Tail returns up to n of the most recent non-empty lines from the log file
// for the given watch id, read back-to-front in fixed-size chunks so large
// log files never need to be loaded in full.
func Tail(id string, n int) ([]string, error) {
	path := fileutil.LogPath(id)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file %s: %w", path, err)
	}

	var (
		collected []string
		carry     string
		pos       = info.Size()
	)

	for pos > 0 && len(collected) < n {
		readSize := int64(tailChunkSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize

		buf := make([]byte, readSize)
		if _, err := f.ReadAt(buf, pos); err != nil {
			return nil, fmt.Errorf("reading log file %s: %w", path, err)
		}

		chunk := string(buf) + carry
		lines := strings.Split(chunk, "\n")
		// lines[0] may be a partial line continued by the next (earlier) chunk.
		carry = lines[0]
		for i := len(lines) - 1; i >= 1 && len(collected) < n; i-- {
			if strings.TrimSpace(lines[i]) == "" {
				continue
			}
			collected = append(collected, lines[i])
		}
	}
	if len(collected) < n && strings.TrimSpace(carry) != "" {
		collected = append(collected, carry)
	}

	// collected is newest-first; restore chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

// NewTailFollower returns a line reader positioned at the current end of
// the log file, for streaming new lines as they're written.
func NewTailFollower(path string) (*bufio.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, nil, err
	}
	return bufio.NewReader(f), f, nil
}
