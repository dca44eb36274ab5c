package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DoneLog records finished match ids in an append-only file, one per line,
// so an interrupted series can resume without replaying archived matches.
// A torn final line is ignored on the next open.
type DoneLog struct {
	mu   sync.Mutex
	file *os.File
	done map[string]struct{}
}

func OpenDoneLog(path string) (*DoneLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	done := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if id := strings.TrimSpace(sc.Text()); id != "" {
				done[id] = struct{}{}
			}
		}
		_ = f.Close()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &DoneLog{file: f, done: done}, nil
}

func (l *DoneLog) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[id]
	return ok
}

func (l *DoneLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

// AddMany appends the ids not yet present and syncs once.
func (l *DoneLog) AddMany(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := l.done[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		l.done[id] = struct{}{}
		added++
	}
	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

func (l *DoneLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
