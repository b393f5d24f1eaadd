package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/stash/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // Local user performing the action.
	Operation string `json:"op"`   // Operation name.
	Vault     string `json:"vault"`

	// Optional fields depending on operation.
	Files        []string `json:"files,omitempty"`         // For add/grab/delete/archive.
	Copy         bool     `json:"copy,omitempty"`          // For add/grab.
	State        string   `json:"state,omitempty"`         // Archive state after the operation.
	RemovedCount int      `json:"removed_count,omitempty"` // For clean.
	Label        string   `json:"label,omitempty"`         // For init.
	VaultID      string   `json:"vault_id,omitempty"`      // For init.
}

// Disabled turns Log into a no-op. Set from the audit.disabled config key.
var Disabled bool

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Log appends an entry to the audit log.
// Operations should not fail just because audit logging failed, so errors
// are dropped.
func Log(entry Entry) {
	if Disabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(timestampLayout)
	}

	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser returns an entry for op with the user and vault filled in.
func LogWithUser(op, vault string) Entry {
	return Entry{
		Operation: op,
		User:      configs.UserStashSettings.Username,
		Vault:     vault,
	}
}

// LogPath returns the path to the audit log file. It lives in the user data
// directory so it never appears inside a vault.
func LogPath() string {
	return filepath.Join(configs.UserStashSettings.UserDataPath, "audit.jsonl")
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	data, err := os.ReadFile(LogPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
