package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/stash/internal/configs"
)

// useTempDataDir points the audit log at a temp directory for one test.
func useTempDataDir(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "stash")

	original := *configs.UserStashSettings
	configs.UserStashSettings.UserDataPath = dataDir
	configs.UserStashSettings.Username = "tester"
	t.Cleanup(func() {
		*configs.UserStashSettings = original
		Disabled = false
	})
	return dataDir
}

func readLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestLog_CreatesFile(t *testing.T) {
	dataDir := useTempDataDir(t)

	Log(Entry{Operation: "add", Files: []string{"notes.txt"}})

	info, err := os.Stat(filepath.Join(dataDir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	useTempDataDir(t)

	Log(Entry{Operation: "add"})
	Log(Entry{Operation: "archive"})
	Log(Entry{Operation: "unpack"})

	lines := readLines(t)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
}

func TestLog_ValidJSON(t *testing.T) {
	useTempDataDir(t)

	entry := LogWithUser("grab", "/home/tester/stash")
	entry.Files = []string{"photo.jpg"}
	entry.Copy = true
	entry.State = "unarchived"
	Log(entry)

	var decoded Entry
	if err := json.Unmarshal([]byte(readLines(t)[0]), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.User != "tester" || decoded.Operation != "grab" || decoded.Vault != "/home/tester/stash" {
		t.Errorf("Unexpected entry: %+v", decoded)
	}
	if !decoded.Copy || len(decoded.Files) != 1 || decoded.Files[0] != "photo.jpg" {
		t.Errorf("Optional fields not preserved: %+v", decoded)
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	useTempDataDir(t)

	Log(Entry{Operation: "add"})

	var decoded Entry
	if err := json.Unmarshal([]byte(readLines(t)[0]), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if _, err := time.Parse(timestampLayout, decoded.Timestamp); err != nil {
		t.Errorf("Timestamp %q does not match layout: %v", decoded.Timestamp, err)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	useTempDataDir(t)

	Log(Entry{Operation: "list"})

	line := readLines(t)[0]
	for _, field := range []string{"files", "copy", "state", "removed_count", "label", "vault_id"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("Expected %q to be omitted from %s", field, line)
		}
	}
}

func TestLog_Disabled(t *testing.T) {
	dataDir := useTempDataDir(t)
	Disabled = true

	Log(Entry{Operation: "add"})

	if _, err := os.Stat(filepath.Join(dataDir, "audit.jsonl")); !os.IsNotExist(err) {
		t.Errorf("Expected no audit log when disabled")
	}
}

func TestReadEntries_MissingLog(t *testing.T) {
	useTempDataDir(t)

	entries, err := ReadEntries()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestReadEntries_RoundTrip(t *testing.T) {
	useTempDataDir(t)

	Log(Entry{Operation: "add", Files: []string{"a"}})
	Log(Entry{Operation: "delete", Files: []string{"a"}})

	entries, err := ReadEntries()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Operation != "add" || entries[1].Operation != "delete" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2026-01-01T00:00:00.000000Z","user":"a","op":"add","vault":"/v"}
{"ts":"2026-01-01T00:00:01.000000Z","user":"a","op":"archive","vault":"/v"}
`)
	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Operation != "archive" {
		t.Errorf("Expected archive, got %s", entries[1].Operation)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte("{\"op\":\"add\"}\nnot json\n{\"op\":\"grab\"")
	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries(nil)
	if err != nil || entries != nil {
		t.Errorf("Expected nil, nil; got %v, %v", entries, err)
	}
}
