// Package utils provides shared utility functions for stash.
//
// # Filesystem Utilities
//
//   - Exists: reports whether anything occupies a path
//   - CopyFile: copies a regular file without overwriting
//   - MoveFile: renames, falling back to copy and remove across filesystems
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - Plural: picks the singular or plural form of a noun
//
// # Terminal Utilities
//
//   - IsTerminal, IsOutputTerminal: terminal detection for stdin and stdout
//   - Confirm: y/N prompt used by destructive commands
package utils
