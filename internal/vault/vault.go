package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/stash/internal/archive"
	"github.com/PolarWolf314/stash/internal/cache"
	serrors "github.com/PolarWolf314/stash/internal/errors"
	logger "github.com/PolarWolf314/stash/internal/logging"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/store"
	"github.com/google/uuid"
)

// ContainerName is the file an archived vault collapses into. It doubles as
// the description of the container's secret.
const ContainerName = "contents"

// legacySecretName is a program file of older vaults that must never be touched.
const legacySecretName = ".secret"

// State is the archive state of a vault. It is derived from the filesystem.
type State int

const (
	Unarchived State = iota
	Archived
)

func (s State) String() string {
	if s == Archived {
		return "archived"
	}
	return "unarchived"
}

// IsReserved reports whether name is a program file in the vault root:
// the persistent store and its companions, legacy secret files and the
// temporary files of atomic writes.
func IsReserved(name string) bool {
	switch name {
	case store.FileName, store.FileName + "-journal", store.FileName + ".lock", legacySecretName:
		return true
	}
	return strings.HasPrefix(name, secrets.TempPrefix)
}

// Config selects the collaborators Open wires into a vault.
type Config struct {
	Root string

	// Cipher is used when the vault is first opened; later opens use the
	// cipher recorded in the store.
	Cipher secrets.Cipher

	StoreBackend string
	LockTimeout  time.Duration

	CacheBackend    string
	CacheTTL        time.Duration
	KeychainService string

	ArchiveTool      string
	CompressionLevel int
	ListTool         string

	Logger *logger.Logger
}

// Deps are the collaborators of a vault.
type Deps struct {
	Store    store.Store
	Cache    cache.Cache
	Archiver archive.Archiver
	Lister   archive.Lister
	Cipher   secrets.Cipher
	Logger   *logger.Logger
}

// Vault is one open vault. It is used for a single operation and then closed.
type Vault struct {
	root          string
	containerPath string
	archived      bool

	store    store.Store
	cache    cache.Cache
	archiver archive.Archiver
	lister   archive.Lister
	cipher   secrets.Cipher
	log      *logger.Logger
	meta     *store.Meta
}

// Open opens the vault at cfg.Root: it opens (or creates) the persistent
// store, records the vault metadata on first use and obtains the session cache.
func Open(ctx context.Context, cfg Config) (*Vault, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	if err := checkRoot(cfg.Root); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Root, store.Options{Backend: cfg.StoreBackend, LockTimeout: cfg.LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening secret store: %w", err)
	}
	log.Debugf("Opened %s store at %s", st.Backend(), store.Path(cfg.Root))

	cipher := cfg.Cipher
	if cipher == "" {
		cipher = secrets.DefaultCipher
	}
	meta, err := st.InitMeta(ctx, store.Meta{
		ID:        uuid.NewString(),
		Cipher:    string(cipher),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	if cipher, err = secrets.ParseCipher(meta.Cipher); err != nil {
		st.Close()
		return nil, fmt.Errorf("vault metadata: %w", err)
	}

	c, err := cache.New(cache.Options{
		Backend:   cfg.CacheBackend,
		Namespace: meta.ID,
		TTL:       cfg.CacheTTL,
		Service:   cfg.KeychainService,
	})
	if errors.Is(err, serrors.ErrCacheUnavailable) {
		log.Warnf("Session cache unavailable, using in-process cache: %v", err)
		c, err = cache.NewMemory(cfg.CacheTTL), nil
	}
	if err != nil {
		st.Close()
		return nil, err
	}

	archiver, err := archive.NewArchiver(cfg.ArchiveTool, cfg.CompressionLevel)
	if err != nil {
		st.Close()
		return nil, err
	}
	lister, err := archive.NewLister(cfg.ListTool)
	if err != nil {
		st.Close()
		return nil, err
	}

	v, err := New(cfg.Root, Deps{
		Store:    st,
		Cache:    c,
		Archiver: archiver,
		Lister:   lister,
		Cipher:   cipher,
		Logger:   log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	v.meta = meta
	return v, nil
}

// New assembles a vault from already opened collaborators.
func New(root string, deps Deps) (*Vault, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Cipher == "" {
		deps.Cipher = secrets.DefaultCipher
	}
	if deps.Cache == nil {
		deps.Cache = cache.None{}
	}

	v := &Vault{
		root:          root,
		containerPath: filepath.Join(root, ContainerName),
		store:         deps.Store,
		cache:         deps.Cache,
		archiver:      deps.Archiver,
		lister:        deps.Lister,
		cipher:        deps.Cipher,
		log:           deps.Logger,
	}
	if err := v.refreshState(); err != nil {
		return nil, err
	}
	return v, nil
}

// Close releases the persistent store.
func (v *Vault) Close() error {
	return v.store.Close()
}

// Root returns the vault directory.
func (v *Vault) Root() string { return v.root }

// State returns the archive state as of the last operation.
func (v *Vault) State() State {
	if v.archived {
		return Archived
	}
	return Unarchived
}

// Cipher returns the AEAD the vault encrypts with.
func (v *Vault) Cipher() secrets.Cipher { return v.cipher }

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", root, serrors.ErrVaultNotFound)
	}
	if err != nil {
		return serrors.IO("checking stash directory", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", root, serrors.ErrVaultNotFound)
	}
	return nil
}

// refreshState re-derives the archive state from the filesystem. Every
// operation calls it first.
func (v *Vault) refreshState() error {
	if err := checkRoot(v.root); err != nil {
		return err
	}
	_, err := os.Lstat(v.containerPath)
	switch {
	case err == nil:
		v.archived = true
	case errors.Is(err, fs.ErrNotExist):
		v.archived = false
	default:
		return serrors.IO("checking archive state", err)
	}
	return nil
}

// itemName validates a user-supplied vault item name and returns its base name.
func itemName(file string) (string, error) {
	name := filepath.Base(file)
	if file == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q is not a file name", serrors.ErrInvalidInput, file)
	}
	if IsReserved(name) {
		return "", fmt.Errorf("%s: %w", name, serrors.ErrReservedName)
	}
	return name, nil
}

// items returns the sorted names in the root that are not program files.
func (v *Vault) items() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, serrors.IO("reading stash directory", err)
	}
	var names []string
	for _, e := range entries {
		if !IsReserved(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// rollback joins cleanup failures onto the error that triggered them.
func rollback(cause error, steps ...error) error {
	errs := []error{cause}
	for _, err := range steps {
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
