// Package manifest implements the config store (spec.md §4.3): the
// repository-committed document mapping tracked paths to their
// recipient-wrapped FileKeys. Load/save/mutate here never touch the
// asymmetric provider directly except in getFileKey, which needs it to
// turn a WrappedKey back into a raw FileKey.
//
// Serialization is stable — sorted keys, two-space indentation, trailing
// newline — so that unrelated changes never churn the committed bytes
// (spec.md §4.3), the same discipline sdmconfig's config.Load/Validate
// idiom applies to its own typed document.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wengineering-works/seekgits/internal/cipher"
	"github.com/wengineering-works/seekgits/internal/gpgwrap"
	"github.com/wengineering-works/seekgits/internal/seekerrors"
)

// CurrentVersion is the schema version written by init and recognized by
// load (spec.md §3, §6).
const CurrentVersion = 1

// FileName is the manifest's path relative to the repository root.
const FileName = ".seekgits.json"

// TrackedFile is one path's recipient-to-WrappedKey mapping (spec.md §3).
type TrackedFile struct {
	Keys map[string][]byte `json:"keys"`
}

// Manifest is the config store's in-memory and on-disk document
// (spec.md §3, §6).
type Manifest struct {
	Version int                    `json:"version"`
	Files   map[string]TrackedFile `json:"files"`
}

// Store binds a Manifest's load/save operations to one repository root and
// one asymmetric provider, per spec.md §9 ("make the repository root an
// explicit parameter").
type Store struct {
	root     string
	provider gpgwrap.Provider
}

// NewStore returns a Store rooted at root, using provider to unwrap
// WrappedKeys in getFileKey.
func NewStore(root string, provider gpgwrap.Provider) *Store {
	return &Store{root: root, provider: provider}
}

func (s *Store) path() string {
	return filepath.Join(s.root, FileName)
}

// Load reads and validates the manifest, failing with
// seekerrors.ErrNotInitialized if absent and seekerrors.ErrCorruptManifest
// if the bytes do not parse, the schema version is unrecognized, or a
// stored path is invalid (spec.md §4.3).
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, seekerrors.ErrNotInitialized
		}
		return nil, fmt.Errorf("seekgits: reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", seekerrors.ErrCorruptManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate rejects manifests with an unrecognized schema version,
// non-normalized paths, or a TrackedFile with an empty recipient set — a
// file with no recipients is invalid and must be removed from the
// manifest, never merely loaded (spec.md §3 Manifest invariants).
func (m *Manifest) Validate() error {
	if m.Version != CurrentVersion {
		return fmt.Errorf("%w: unrecognized schema version %d", seekerrors.ErrCorruptManifest, m.Version)
	}
	for p, tf := range m.Files {
		if err := validatePath(p); err != nil {
			return fmt.Errorf("%w: %v", seekerrors.ErrCorruptManifest, err)
		}
		if len(tf.Keys) == 0 {
			return fmt.Errorf("%w: %s has an empty recipient set", seekerrors.ErrCorruptManifest, p)
		}
	}
	return nil
}

func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return fmt.Errorf("path %q must be repository-relative", p)
	}
	if strings.HasPrefix(p, "./") {
		return fmt.Errorf("path %q must not have a leading ./", p)
	}
	clean := path.Clean(p)
	if clean != p || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q is not normalized", p)
	}
	return nil
}

// Save atomically writes m (write-temp, rename) with a trailing newline,
// so a crash mid-write never loses the prior committed content
// (spec.md §4.3, §5).
func (s *Store) Save(m *Manifest) error {
	data, err := marshalStable(m)
	if err != nil {
		return fmt.Errorf("seekgits: marshaling manifest: %w", err)
	}

	dir := filepath.Dir(s.path())
	tmp, err := os.CreateTemp(dir, ".seekgits.json.tmp-*")
	if err != nil {
		return fmt.Errorf("seekgits: creating temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("seekgits: writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("seekgits: closing temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		return fmt.Errorf("seekgits: renaming temp manifest into place: %w", err)
	}
	return nil
}

// marshalStable JSON-encodes m with two-space indentation, Go's
// encoding/json already sorts map[string]T keys, and appends the trailing
// newline spec.md §4.3 requires.
func marshalStable(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Init writes an empty manifest at the current schema version if none
// exists; an existing manifest is left unchanged (spec.md §4.3).
func (s *Store) Init() error {
	if _, err := os.Stat(s.path()); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("seekgits: checking manifest: %w", err)
	}
	empty := &Manifest{Version: CurrentVersion, Files: map[string]TrackedFile{}}
	return s.Save(empty)
}

// AddTrackedFile inserts path with one recipient's wrapped key, failing
// with seekerrors.ErrAlreadyTracked if path is already present
// (spec.md §4.3).
func (s *Store) AddTrackedFile(path, recipient string, wrapped []byte) error {
	m, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := m.Files[path]; ok {
		return fmt.Errorf("%w: %s", seekerrors.ErrAlreadyTracked, path)
	}
	m.Files[path] = TrackedFile{Keys: map[string][]byte{recipient: wrapped}}
	return s.Save(m)
}

// AddRecipient wraps an additional recipient's key into an already tracked
// path, failing with seekerrors.ErrNotTracked if path is absent and
// seekerrors.ErrRecipientDuplicate if recipient already has access
// (spec.md §4.3).
func (s *Store) AddRecipient(path, recipient string, wrapped []byte) error {
	m, err := s.Load()
	if err != nil {
		return err
	}
	tf, ok := m.Files[path]
	if !ok {
		return fmt.Errorf("%w: %s", seekerrors.ErrNotTracked, path)
	}
	if _, ok := tf.Keys[recipient]; ok {
		return fmt.Errorf("%w: %s for %s", seekerrors.ErrRecipientDuplicate, recipient, path)
	}
	tf.Keys[recipient] = wrapped
	m.Files[path] = tf
	return s.Save(m)
}

// RemoveTrackedFile deletes path's manifest entry, failing with
// seekerrors.ErrNotTracked if absent (spec.md §4.3).
func (s *Store) RemoveTrackedFile(path string) error {
	m, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := m.Files[path]; !ok {
		return fmt.Errorf("%w: %s", seekerrors.ErrNotTracked, path)
	}
	delete(m.Files, path)
	return s.Save(m)
}

// GetFileKey attempts to unwrap each of path's wrapped entries in turn,
// returning the first successful FileKey. The attempt order is sorted by
// recipient so it is deterministic across runs, satisfying spec.md §4.3's
// "unspecified but deterministic" requirement. It fails with
// seekerrors.ErrNoAccess, naming every recipient that was tried, if none
// succeed.
func (s *Store) GetFileKey(path string) (cipher.FileKey, error) {
	m, err := s.Load()
	if err != nil {
		return cipher.FileKey{}, err
	}
	tf, ok := m.Files[path]
	if !ok {
		return cipher.FileKey{}, fmt.Errorf("%w: %s", seekerrors.ErrNotTracked, path)
	}

	recipients := sortedKeys(tf.Keys)
	var tried []string
	for _, recipient := range recipients {
		raw, err := s.provider.Unwrap(tf.Keys[recipient])
		if err != nil {
			tried = append(tried, recipient)
			continue
		}
		fk, err := cipher.NewFileKey(raw)
		if err != nil {
			tried = append(tried, recipient)
			continue
		}
		return fk, nil
	}
	return cipher.FileKey{}, fmt.Errorf("%w: tried %s", seekerrors.ErrNoAccess, strings.Join(tried, ", "))
}

// ListRecipients returns path's recipient set sorted lexicographically for
// stable presentation (spec.md §4.3).
func (s *Store) ListRecipients(path string) ([]string, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	tf, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", seekerrors.ErrNotTracked, path)
	}
	return sortedKeys(tf.Keys), nil
}

// ListTrackedPaths returns every path currently in the manifest, sorted.
func (s *Store) ListTrackedPaths() ([]string, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
