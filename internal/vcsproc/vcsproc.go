// Package vcsproc implements the external adapters (spec.md §2 C7, §6):
// the thin wrapper around shelling out to the host VCS (git) for index and
// attribute manipulation. Lifecycle operations use this package; the
// filter engine never does, since filter invocations have no business
// mutating VCS state (spec.md §5).
package vcsproc

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	execabs "golang.org/x/sys/execabs"
)

// VCS is the contract lifecycle operations depend on, so tests can
// substitute a fake instead of shelling out to a real git binary — the
// same separation gpgwrap.Provider draws for the asymmetric provider.
type VCS interface {
	RepositoryRoot(dir string) (string, error)
	SetConfig(root, key, value string) error
	StagePath(root, path string) error
	RenormalizePath(root, path string) error
	ClearCachedEntry(root, path string) error
}

// Git wraps invocations of the git binary, resolved once via execabs the
// same way the recipient wrapper resolves gpg.
type Git struct {
	Binary string
}

var _ VCS = (*Git)(nil)

// NewGit resolves the git binary on PATH.
func NewGit() (*Git, error) {
	bin, err := execabs.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("seekgits: locating git: %w", err)
	}
	return &Git{Binary: bin}, nil
}

func (g *Git) run(dir string, args ...string) (string, error) {
	cmd := exec.Command(g.Binary, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("seekgits: git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RepositoryRoot returns the absolute path to the repository root
// containing dir, the value the config store and attribute manager are
// rooted at (spec.md §9).
func (g *Git) RepositoryRoot(dir string) (string, error) {
	return g.run(dir, "rev-parse", "--show-toplevel")
}

// SetConfig sets a single git config key to value, local to the
// repository at root, used by init to register the filter/diff driver
// (spec.md §4.6, §6).
func (g *Git) SetConfig(root, key, value string) error {
	_, err := g.run(root, "config", key, value)
	return err
}

// StagePath runs "git add" on path, used after start-tracking installs a
// new attribute entry (spec.md §4.6).
func (g *Git) StagePath(root, path string) error {
	_, err := g.run(root, "add", path)
	return err
}

// RenormalizePath invalidates any cached pre-filter index entry for path
// and re-applies the now-installed filter, per spec.md §4.6's
// start-tracking step 6. This mirrors "git add --renormalize".
func (g *Git) RenormalizePath(root, path string) error {
	_, err := g.run(root, "add", "--renormalize", path)
	return err
}

// ClearCachedEntry drops path from the index without touching the working
// tree, used by stop-tracking to discard the filtered blob before the
// working-directory file itself is removed (spec.md §4.6).
func (g *Git) ClearCachedEntry(root, path string) error {
	_, err := g.run(root, "rm", "--cached", "--quiet", path)
	return err
}
