// Package lifecycle implements the lifecycle operations (spec.md §4.6):
// init, start-tracking, add-recipient, stop-tracking, and status. These
// are the only operations that mutate the config store and attribute
// file; the user drives them serially from a shell (spec.md §5), so
// unlike the filter engine they are free to surface errors directly to
// the caller with actionable messages (spec.md §7).
package lifecycle

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wengineering-works/seekgits/internal/attrs"
	"github.com/wengineering-works/seekgits/internal/cipher"
	"github.com/wengineering-works/seekgits/internal/gpgwrap"
	"github.com/wengineering-works/seekgits/internal/manifest"
	"github.com/wengineering-works/seekgits/internal/seekerrors"
	"github.com/wengineering-works/seekgits/internal/vcsproc"
)

// FilterName is the name registered with the host VCS for the clean,
// smudge and diff drivers (spec.md §6).
const FilterName = "seekgits"

// Controller wires together the config store, attribute manager,
// asymmetric provider and VCS adapter that the lifecycle operations need.
type Controller struct {
	Root     string
	Store    *manifest.Store
	Attrs    *attrs.Manager
	Provider gpgwrap.Provider
	Git      vcsproc.VCS
}

// NewController returns a Controller rooted at root.
func NewController(root string, provider gpgwrap.Provider, git vcsproc.VCS) *Controller {
	return &Controller{
		Root:     root,
		Store:    manifest.NewStore(root, provider),
		Attrs:    attrs.NewManager(root),
		Provider: provider,
		Git:      git,
	}
}

// Init requires the current directory to be a repository and the
// asymmetric provider to be present, registers the clean/smudge/textconv
// filters with the host VCS using required=true, and creates the
// manifest if absent (spec.md §4.6).
func (c *Controller) Init() error {
	if _, err := c.Git.RepositoryRoot(c.Root); err != nil {
		return fmt.Errorf("%w: %v", seekerrors.ErrNotRepository, err)
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("seekgits: resolving binary path: %w", err)
	}
	binary, err = filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("seekgits: resolving absolute binary path: %w", err)
	}

	settings := map[string]string{
		fmt.Sprintf("filter.%s.clean", FilterName):    fmt.Sprintf("%s filter encrypt %%f", binary),
		fmt.Sprintf("filter.%s.smudge", FilterName):   fmt.Sprintf("%s filter decrypt %%f", binary),
		fmt.Sprintf("filter.%s.required", FilterName): "true",
		fmt.Sprintf("diff.%s.textconv", FilterName):   fmt.Sprintf("%s filter decrypt %%f", binary),
		fmt.Sprintf("diff.%s.binary", FilterName):     "true",
	}
	for key, value := range settings {
		if err := c.Git.SetConfig(c.Root, key, value); err != nil {
			return fmt.Errorf("seekgits: registering %s: %w", key, err)
		}
	}

	return c.Store.Init()
}

// StartTracking generates a fresh FileKey, wraps it to recipient (or the
// provider's default identity if recipient is empty), inserts it into the
// manifest, installs the attribute line, and stages both the attribute
// file and the renormalized path (spec.md §4.6).
func (c *Controller) StartTracking(path, recipient string) error {
	absPath := filepath.Join(c.Root, path)
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("seekgits: %s does not exist: %w", path, err)
	}

	if tracked, err := c.isTracked(path); err != nil {
		return err
	} else if tracked {
		return fmt.Errorf("%w: %s", seekerrors.ErrAlreadyTracked, path)
	}

	if recipient == "" {
		def, ok, err := c.Provider.DefaultRecipient()
		if err != nil {
			return fmt.Errorf("seekgits: querying default recipient: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w", seekerrors.ErrNoIdentity)
		}
		recipient = def
	}

	var raw [cipher.FileKeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return fmt.Errorf("seekgits: generating file key: %w", err)
	}

	wrapped, err := c.Provider.Wrap(recipient, raw[:])
	if err != nil {
		return fmt.Errorf("seekgits: wrapping file key to %s: %w", recipient, err)
	}

	if err := c.Store.AddTrackedFile(path, recipient, wrapped); err != nil {
		return err
	}
	if err := c.Attrs.AddFilter(path); err != nil {
		return err
	}

	if err := c.Git.StagePath(c.Root, attrs.FileName); err != nil {
		return fmt.Errorf("seekgits: staging %s: %w", attrs.FileName, err)
	}
	if err := c.Git.RenormalizePath(c.Root, path); err != nil {
		return fmt.Errorf("seekgits: renormalizing %s: %w", path, err)
	}
	return nil
}

func (c *Controller) isTracked(path string) (bool, error) {
	m, err := c.Store.Load()
	if err != nil {
		return false, err
	}
	_, ok := m.Files[path]
	return ok, nil
}

// AddRecipient requires the caller to currently be able to unwrap path's
// FileKey, then wraps that key to an additional recipient (spec.md §4.6).
func (c *Controller) AddRecipient(path, recipient string) error {
	fk, err := c.Store.GetFileKey(path)
	if err != nil {
		return err
	}
	wrapped, err := c.Provider.Wrap(recipient, fk[:])
	if err != nil {
		return fmt.Errorf("seekgits: wrapping file key to %s: %w", recipient, err)
	}
	return c.Store.AddRecipient(path, recipient, wrapped)
}

// StopTracking removes path's manifest entry and attribute line, clears
// the host VCS's cached entry, and deletes the working-directory file to
// prevent an accidental unencrypted re-commit (spec.md §4.6).
func (c *Controller) StopTracking(path string) error {
	if err := c.Store.RemoveTrackedFile(path); err != nil {
		return err
	}
	if err := c.Attrs.RemoveFilter(path); err != nil {
		return err
	}
	if err := c.Git.ClearCachedEntry(c.Root, path); err != nil {
		return fmt.Errorf("seekgits: clearing cached entry for %s: %w", path, err)
	}
	absPath := filepath.Join(c.Root, path)
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("seekgits: removing %s: %w", path, err)
	}
	return nil
}

// StatusReport is one tracked path's reported state (spec.md §4.6).
type StatusReport struct {
	Path         string
	Recipients   []string
	FileExists   bool
	CanUnwrapKey bool
}

// Status reports, for one or all tracked paths, the recipient set,
// whether the working-directory file exists, and whether the caller can
// currently unwrap a FileKey (spec.md §4.6). If path is empty, every
// tracked path is reported.
func (c *Controller) Status(path string) ([]StatusReport, error) {
	var paths []string
	if path != "" {
		paths = []string{path}
	} else {
		all, err := c.Store.ListTrackedPaths()
		if err != nil {
			return nil, err
		}
		paths = all
	}

	reports := make([]StatusReport, 0, len(paths))
	for _, p := range paths {
		recipients, err := c.Store.ListRecipients(p)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(filepath.Join(c.Root, p))
		_, keyErr := c.Store.GetFileKey(p)
		reports = append(reports, StatusReport{
			Path:         p,
			Recipients:   recipients,
			FileExists:   statErr == nil,
			CanUnwrapKey: keyErr == nil,
		})
	}
	return reports, nil
}
