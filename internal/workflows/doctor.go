package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/PolarWolf314/stash/internal/archive"
	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/cache"
	"github.com/PolarWolf314/stash/internal/configs"
	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/store"
	"github.com/PolarWolf314/stash/internal/utils"
	"github.com/PolarWolf314/stash/internal/vault"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Common
}

// doctorEnv is shared by the checks. Checks that depend on an earlier one
// see its outcome through it.
type doctorEnv struct {
	ctx  context.Context
	opts DoctorOptions
	cfg  *configs.Config
	v    *vault.Vault
}

// Doctor runs health checks on the stash.
//
// The doctor workflow checks:
//   - Configuration file validity
//   - Stash directory existence and permissions
//   - Secret store accessibility
//   - Session cache availability
//   - Consistency of files and secrets
//   - External tools, when configured
//   - Audit log permissions
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	env := &doctorEnv{ctx: ctx, opts: opts}
	defer func() {
		if env.v != nil {
			env.v.Close()
		}
	}()

	checks := []func(*doctorEnv) CheckResult{
		checkConfig,
		checkStashDirectory,
		checkSecretStore,
		checkSessionCache,
		checkConsistency,
		checkExternalTools,
		checkAuditLog,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check(env))
	}

	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}, nil
}

func checkConfig(env *doctorEnv) CheckResult {
	cfg, err := loadConfig(env.opts.Common)
	if err != nil {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Check %s and STASH_* environment variables", configs.ConfigFilePath()),
		}
	}
	env.cfg = cfg

	ok, _ := utils.Exists(configs.ConfigFilePath())
	if !ok {
		return CheckResult{
			Name:    "Configuration",
			Status:  CheckPass,
			Message: "Using defaults (no config file)",
		}
	}
	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: fmt.Sprintf("Configuration valid (%s)", configs.ConfigFilePath()),
	}
}

func checkStashDirectory(env *doctorEnv) CheckResult {
	if env.cfg == nil {
		return skipped("Stash directory", "configuration")
	}

	root := env.cfg.Vault.Root
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       "Stash directory",
			Status:     CheckError,
			Message:    fmt.Sprintf("No stash at %s", root),
			Suggestion: "Run 'stash init <label> --default' to create a stash",
		}
	}
	if err != nil || !info.IsDir() {
		return CheckResult{
			Name:       "Stash directory",
			Status:     CheckError,
			Message:    fmt.Sprintf("%s is not a usable directory", root),
			Suggestion: "Point vault.root at a directory",
		}
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return CheckResult{
			Name:       "Stash directory",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Stash directory is accessible to other users (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 700 %s' to fix permissions", root),
		}
	}

	return CheckResult{
		Name:    "Stash directory",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s has correct permissions (0700)", root),
	}
}

func checkSecretStore(env *doctorEnv) CheckResult {
	if env.cfg == nil {
		return skipped("Secret store", "configuration")
	}

	cfg := vaultConfig(env.cfg, env.cfg.Vault.Root, env.opts.logger())
	// The cache is checked on its own; keep this check independent of it.
	cfg.CacheBackend = cache.BackendNone

	v, err := vault.Open(env.ctx, cfg)
	switch {
	case errors.Is(err, serrors.ErrVaultNotFound):
		return skipped("Secret store", "stash directory")
	case errors.Is(err, serrors.ErrStoreLocked):
		return CheckResult{
			Name:       "Secret store",
			Status:     CheckWarning,
			Message:    "Secret store is in use by another stash command",
			Suggestion: "Wait for the other command to finish and run 'stash doctor' again",
		}
	case err != nil:
		return CheckResult{
			Name:       "Secret store",
			Status:     CheckError,
			Message:    fmt.Sprintf("Cannot open secret store: %v", err),
			Suggestion: fmt.Sprintf("Check %s", store.Path(env.cfg.Vault.Root)),
		}
	}
	env.v = v

	info, err := os.Stat(store.Path(env.cfg.Vault.Root))
	if err == nil && info.Mode().Perm() != 0600 {
		return CheckResult{
			Name:       "Secret store",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Secret store has insecure permissions (%04o)", info.Mode().Perm()),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", store.Path(env.cfg.Vault.Root)),
		}
	}

	return CheckResult{
		Name:    "Secret store",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s store readable (cipher %s)", env.cfg.Store.Backend, v.Cipher()),
	}
}

func checkSessionCache(env *doctorEnv) CheckResult {
	if env.cfg == nil {
		return skipped("Session cache", "configuration")
	}

	c, err := cache.New(cache.Options{
		Backend:   env.cfg.Cache.Backend,
		Namespace: "doctor",
		TTL:       env.cfg.Cache.TTL,
		Service:   env.cfg.Cache.KeychainService,
	})
	if err != nil {
		return CheckResult{
			Name:       "Session cache",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Cache backend %q unavailable, secrets will be read from the store", env.cfg.Cache.Backend),
			Suggestion: "Set cache.backend to \"keychain\" or \"none\"",
		}
	}
	return CheckResult{
		Name:    "Session cache",
		Status:  CheckPass,
		Message: fmt.Sprintf("Using %s cache", c.Name()),
	}
}

func checkConsistency(env *doctorEnv) CheckResult {
	if env.v == nil {
		return skipped("Consistency", "secret store")
	}

	scan, err := env.v.Scan(env.ctx)
	if err != nil {
		return CheckResult{
			Name:    "Consistency",
			Status:  CheckError,
			Message: fmt.Sprintf("Consistency scan failed: %v", err),
		}
	}
	if len(scan.OrphanedFiles) > 0 {
		return CheckResult{
			Name:   "Consistency",
			Status: CheckError,
			Message: fmt.Sprintf("%d %s without a secret: %s", len(scan.OrphanedFiles),
				utils.Plural(len(scan.OrphanedFiles), "file"), utils.FormatPaths(scan.OrphanedFiles)),
			Suggestion: "Restore the secret store from a backup; these files cannot be decrypted",
		}
	}
	if len(scan.TempFiles) > 0 {
		return CheckResult{
			Name:   "Consistency",
			Status: CheckWarning,
			Message: fmt.Sprintf("%d leftover temp %s from an interrupted operation: %s", len(scan.TempFiles),
				utils.Plural(len(scan.TempFiles), "file"), utils.FormatPaths(scan.TempFiles)),
			Suggestion: "Run 'stash clean' to remove them",
		}
	}
	if len(scan.DanglingEntries) > 0 {
		return CheckResult{
			Name:   "Consistency",
			Status: CheckWarning,
			Message: fmt.Sprintf("%d %s without a file", len(scan.DanglingEntries),
				utils.Plural(len(scan.DanglingEntries), "secret")),
			Suggestion: "Run 'stash clean' to remove them",
		}
	}
	return CheckResult{
		Name:    "Consistency",
		Status:  CheckPass,
		Message: fmt.Sprintf("Every file has a secret (%s)", env.v.State()),
	}
}

func checkExternalTools(env *doctorEnv) CheckResult {
	if env.cfg == nil {
		return skipped("External tools", "configuration")
	}

	var tools []string
	if env.cfg.Archive.Tool == archive.ToolTar {
		tools = append(tools, "tar")
	}
	if env.cfg.List.Tool == archive.ToolLs {
		tools = append(tools, "ls")
	}
	if len(tools) == 0 {
		return CheckResult{
			Name:    "External tools",
			Status:  CheckPass,
			Message: "Using built-in archiver and lister",
		}
	}

	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			return CheckResult{
				Name:       "External tools",
				Status:     CheckError,
				Message:    fmt.Sprintf("%s not found in PATH", tool),
				Suggestion: "Install it or switch the tool back to \"native\"",
			}
		}
	}
	return CheckResult{
		Name:    "External tools",
		Status:  CheckPass,
		Message: fmt.Sprintf("Found %s", utils.FormatPaths(tools)),
	}
}

func checkAuditLog(env *doctorEnv) CheckResult {
	if audit.Disabled {
		return CheckResult{
			Name:    "Audit log",
			Status:  CheckPass,
			Message: "Audit log disabled",
		}
	}

	info, err := os.Stat(audit.LogPath())
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Audit log",
			Status:  CheckPass,
			Message: "No audit log yet",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    "Audit log",
			Status:  CheckWarning,
			Message: fmt.Sprintf("Cannot read audit log: %v", err),
		}
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return CheckResult{
			Name:       "Audit log",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Audit log is readable by other users (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", audit.LogPath()),
		}
	}
	return CheckResult{
		Name:    "Audit log",
		Status:  CheckPass,
		Message: "Audit log has correct permissions",
	}
}

func skipped(name, dependency string) CheckResult {
	return CheckResult{
		Name:    name,
		Status:  CheckWarning,
		Message: fmt.Sprintf("Skipped: %s check failed", dependency),
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
