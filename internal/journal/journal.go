package journal

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal writes a per-run log of order lifecycle events to a file so a
// trading session can be audited after the fact. App logging is
// structured elsewhere; this file is the human-readable record.
type Journal struct {
	venueName string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
}

// New creates a journal file under dir, named after the venue and the
// session start date.
func New(dir, venueName string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", venueName, time.Now().Format("2006-01-02_150405"))
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &Journal{
		venueName: venueName,
		file:      file,
		logger:    log.New(file, "", 0),
	}
	j.writeSessionHeader()
	return j, nil
}

func (j *Journal) writeSessionHeader() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logger.Printf("==== trading session started %s | venue: %s ====",
		time.Now().Format(time.RFC3339), j.venueName)
}

// Lifecycle records one trade lifecycle event.
func (j *Journal) Lifecycle(tradeID, symbol, side, status, detail string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("%s | %s | %s %s -> %s",
		time.Now().Format("2006-01-02 15:04:05"), tradeID, symbol, side, status)
	if detail != "" {
		line += " | " + detail
	}
	j.logger.Print(line)
}

// Rejection records a risk gate rejection.
func (j *Journal) Rejection(symbol, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logger.Printf("%s | RISK REJECTED | %s | %s",
		time.Now().Format("2006-01-02 15:04:05"), symbol, reason)
}

// Note records a free-form session event.
func (j *Journal) Note(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logger.Printf("%s | %s", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logger.Printf("==== trading session ended %s ====", time.Now().Format(time.RFC3339))
	return j.file.Close()
}
