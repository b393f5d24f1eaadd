// Package audit records stash operations in an append-only log.
//
// Every state-changing operation (init, add, grab, delete, archive, unpack,
// clean) appends one entry, so the user can see when a file left the vault
// and whether it was copied or moved.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_DATA_HOME/stash/audit.jsonl
//
// It is deliberately kept out of the vault root: an archived vault holds
// only its container and the secret store.
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Local username
//   - Operation name and vault root
//   - Operation-specific details (files, copy flag, resulting state)
//
// # Usage
//
//	entry := audit.LogWithUser("add", root)
//	entry.Files = []string{"notes.txt"}
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for `stash log`.
// Malformed entries are silently skipped to handle partial writes.
package audit
