package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix   = "pharmdb-"
	cleanupInterval = 24 * time.Hour
)

var numberedLogFile = regexp.MustCompile(`^pharmdb-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingWriter is an io.Writer over one log file per ISO week. A week's file
// is continued with a numbered suffix once it reaches maxSize. Files older than
// the retention period are removed once a day.
type RotatingWriter struct {
	dir       string
	retention time.Duration
	maxSize   int64

	mu   sync.Mutex
	file *os.File
	week string
	size int64

	stop chan struct{}
	done chan struct{}
}

// NewRotatingWriter creates dir if needed, opens the current week's file and
// starts the retention sweeper. maxSize <= 0 disables size rotation.
func NewRotatingWriter(dir string, retentionWeeks int, maxSize int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if retentionWeeks <= 0 {
		retentionWeeks = 4
	}

	rw := &RotatingWriter{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	rw.mu.Lock()
	err := rw.rotate(weekKey(time.Now()), false)
	rw.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rw.sweep()
	return rw, nil
}

// weekKey returns the ISO week in YYYY-Www form
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write appends p to the current file, rotating first when the week changed
// or p would push the file past maxSize.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	week := weekKey(time.Now())
	full := rw.maxSize > 0 && rw.size+int64(len(p)) > rw.maxSize && rw.size > 0
	if week != rw.week || full {
		if err := rw.rotate(week, full); err != nil {
			return 0, err
		}
	}
	if rw.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// rotate switches to the file for week; caller holds mu
func (rw *RotatingWriter) rotate(week string, full bool) error {
	if rw.file != nil {
		_ = rw.file.Close()
		rw.file = nil
	}

	name := rw.fileFor(week, full)
	path := filepath.Join(rw.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}

	rw.file = file
	rw.week = week
	rw.size = 0
	if info, err := file.Stat(); err == nil {
		rw.size = info.Size()
	}
	return nil
}

// fileFor picks the file to continue for week: the base file while it has
// room, then the highest numbered one, then a new number.
func (rw *RotatingWriter) fileFor(week string, full bool) string {
	base := logFilePrefix + week + ".log"
	if rw.maxSize <= 0 {
		return base
	}

	if !full {
		info, err := os.Stat(filepath.Join(rw.dir, base))
		if err != nil || info.Size() < rw.maxSize {
			return base
		}
	}

	highest, highestSize := 0, int64(0)
	matches, _ := filepath.Glob(filepath.Join(rw.dir, logFilePrefix+week+"_??.log"))
	for _, match := range matches {
		m := numberedLogFile.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		if num, _ := strconv.Atoi(m[1]); num > highest {
			highest = num
			highestSize = 0
			if info, err := os.Stat(match); err == nil {
				highestSize = info.Size()
			}
		}
	}

	if highest > 0 && !full && highestSize < rw.maxSize {
		return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest+1)
}

func (rw *RotatingWriter) sweep() {
	defer close(rw.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rw.stop:
			return
		case <-ticker.C:
			if _, err := rw.removeExpired(time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// removeExpired deletes log files last modified before now minus retention
func (rw *RotatingWriter) removeExpired(now time.Time) (int, error) {
	entries, err := os.ReadDir(rw.dir)
	if err != nil {
		return 0, fmt.Errorf("read log directory: %w", err)
	}

	cutoff := now.Add(-rw.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rw.dir, name)) == nil {
			removed++
		}
	}
	return removed, nil
}

// Close stops the sweeper and closes the current file
func (rw *RotatingWriter) Close() error {
	select {
	case <-rw.stop:
	default:
		close(rw.stop)
	}
	<-rw.done

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}
