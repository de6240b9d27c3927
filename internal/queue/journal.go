package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type JournalEntry struct {
	Time      time.Time       `json:"time"`
	MessageID string          `json:"message_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error,omitempty"`
}

// Journal wraps a Publisher and appends every publish attempt to a JSON-lines
// file. It is a debugging aid; nothing reads it back to replay messages.
type Journal struct {
	next     Publisher
	mu       sync.Mutex
	dataFile string
	now      func() time.Time
}

func NewJournal(next Publisher, dataFile string) *Journal {
	return &Journal{
		next:     next,
		dataFile: dataFile,
		now:      time.Now,
	}
}

func (j *Journal) Publish(ctx context.Context, payload any) (string, error) {
	id, err := j.next.Publish(ctx, payload)

	entry := JournalEntry{Time: j.now().UTC(), MessageID: id}
	if data, encErr := Encode(payload); encErr == nil {
		entry.Payload = data
	} else {
		entry.Payload = json.RawMessage("null")
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if appendErr := j.append(entry); appendErr != nil {
		slog.Warn("Failed to write publish journal", "path", j.dataFile, "message_id", id, "error", appendErr)
	}

	return id, err
}

func (j *Journal) Close() error {
	return j.next.Close()
}

// Entries reads the journal back in write order.
func (j *Journal) Entries() ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.dataFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (j *Journal) append(entry JournalEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.dataFile), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(j.dataFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to journal: %w", err)
	}
	return nil
}
