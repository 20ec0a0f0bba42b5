package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Action string

const (
	ActionBlockUser        Action = "block_user"
	ActionUnblockUser      Action = "unblock_user"
	ActionDeleteUser       Action = "delete_user"
	ActionSetPassword      Action = "set_password"
	ActionDeleteRecipe     Action = "delete_recipe"
	ActionCreateIngredient Action = "create_ingredient"
	ActionUpdateIngredient Action = "update_ingredient"
	ActionDeleteIngredient Action = "delete_ingredient"
)

// Entry is one moderation action.
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	ActorID   uint      `json:"actor_id"`
	Target    string    `json:"target"`
	TargetID  uint      `json:"target_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal is an append-only JSON-lines file. Every append is fsynced before
// it returns.
type Journal struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

func Open(filePath string) (*Journal, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		filePath: filePath,
		file:     file,
	}, nil
}

// Append writes entry, filling in ID and Timestamp when empty.
func (j *Journal) Append(entry Entry) error {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("Audit: Failed to write entry",
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return err
	}

	syncStart := time.Now()
	if err := j.file.Sync(); err != nil {
		logger.Log.Error("Audit: Failed to sync to disk",
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("Audit: Entry written and synced",
		zap.String("entry_id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.Uint("actor_id", entry.ActorID),
		zap.Duration("sync_duration", time.Since(syncStart)),
		zap.Duration("total_duration", time.Since(start)),
	)

	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAllUnsafe()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

// Prune drops entries older than cutoff by rewriting the file through a
// temp file and rename, then reopens it for appending.
func (j *Journal) Prune(cutoff time.Time) (int, error) {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	allEntries, err := j.readAllUnsafe()
	if err != nil {
		return 0, err
	}

	var kept []Entry
	for _, entry := range allEntries {
		if !entry.Timestamp.Before(cutoff) {
			kept = append(kept, entry)
		}
	}

	removed := len(allEntries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := j.file.Close(); err != nil {
		return 0, err
	}

	tempFile := j.filePath + ".tmp"
	if err := writeEntries(tempFile, kept); err != nil {
		logger.Log.Error("Audit: Failed to write temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return 0, j.reopen(err)
	}

	if err := os.Rename(tempFile, j.filePath); err != nil {
		logger.Log.Error("Audit: Failed to rename temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return 0, j.reopen(err)
	}

	if err := j.reopen(nil); err != nil {
		return 0, err
	}

	logger.Log.Info("Audit: Pruned journal",
		zap.Int("removed_count", removed),
		zap.Int("remaining_count", len(kept)),
		zap.Duration("duration", time.Since(start)),
	)

	return removed, nil
}

// reopen restores the append handle and returns cause (or the open error).
func (j *Journal) reopen(cause error) error {
	file, err := os.OpenFile(j.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Error("Audit: Failed to reopen file",
			zap.String("file_path", j.filePath),
			zap.Error(err),
		)
		return err
	}
	j.file = file
	return cause
}

func writeEntries(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// readAllUnsafe reads every entry; callers hold mu.
func (j *Journal) readAllUnsafe() ([]Entry, error) {
	file, err := os.Open(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// a torn final line after a crash
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
