package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wengineering-works/seekgits/internal/gpgwrap"
	"github.com/wengineering-works/seekgits/internal/seekerrors"
	"github.com/wengineering-works/seekgits/internal/vcsproc"
)

func newTestController(t *testing.T) (*Controller, *gpgwrap.FakeProvider, *vcsproc.FakeVCS) {
	t.Helper()
	dir := t.TempDir()
	provider := gpgwrap.NewFakeProvider("alice@example.com", "bob@example.com")
	vcs := vcsproc.NewFakeVCS(dir)
	c := NewController(dir, provider, vcs)
	return c, provider, vcs
}

func TestInitRegistersFilterAndCreatesManifest(t *testing.T) {
	c, _, vcs := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, key := range []string{
		"filter.seekgits.clean",
		"filter.seekgits.smudge",
		"filter.seekgits.required",
		"diff.seekgits.textconv",
		"diff.seekgits.binary",
	} {
		if _, ok := vcs.Config[key]; !ok {
			t.Errorf("Init did not register %s", key)
		}
	}
	if vcs.Config["filter.seekgits.required"] != "true" {
		t.Errorf("filter.seekgits.required = %q, want true", vcs.Config["filter.seekgits.required"])
	}

	if _, err := c.Store.Load(); err != nil {
		t.Fatalf("manifest not created by Init: %v", err)
	}
}

func TestInitIsIdempotentOnManifest(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTracking(touchFile(t, c.Root, "secrets.env"), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	m, err := c.Store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Files["secrets.env"]; !ok {
		t.Fatal("second Init discarded the existing manifest")
	}
}

func touchFile(t *testing.T, root, relPath string) string {
	t.Helper()
	abs := filepath.Join(root, relPath)
	if err := os.WriteFile(abs, []byte("SECRET=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	return relPath
}

func TestStartTrackingFullFlow(t *testing.T) {
	c, _, vcs := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")

	if err := c.StartTracking(path, "alice@example.com"); err != nil {
		t.Fatalf("StartTracking: %v", err)
	}

	recipients, err := c.Store.ListRecipients(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 1 || recipients[0] != "alice@example.com" {
		t.Fatalf("recipients = %v, want [alice@example.com]", recipients)
	}

	has, err := c.Attrs.HasFilter(path)
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Fatal("StartTracking did not install the attribute line")
	}

	if len(vcs.StagedPaths) != 1 || vcs.StagedPaths[0] != ".gitattributes" {
		t.Fatalf("StagedPaths = %v, want [.gitattributes]", vcs.StagedPaths)
	}
	if len(vcs.Renormalized) != 1 || vcs.Renormalized[0] != path {
		t.Fatalf("Renormalized = %v, want [%s]", vcs.Renormalized, path)
	}
}

func TestStartTrackingUsesDefaultRecipient(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")

	if err := c.StartTracking(path, ""); err != nil {
		t.Fatalf("StartTracking without explicit recipient: %v", err)
	}
	recipients, err := c.Store.ListRecipients(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 1 || recipients[0] != "alice@example.com" {
		t.Fatalf("recipients = %v, want the provider's default", recipients)
	}
}

func TestStartTrackingNoIdentity(t *testing.T) {
	dir := t.TempDir()
	provider := &gpgwrap.FakeProvider{PublicKeys: map[string]bool{}, PrivateKeys: map[string]bool{}}
	c := NewController(dir, provider, vcsproc.NewFakeVCS(dir))
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")

	err := c.StartTracking(path, "")
	if err == nil || !errors.Is(err, seekerrors.ErrNoIdentity) {
		t.Fatalf("StartTracking error = %v, want ErrNoIdentity", err)
	}
}

func TestStartTrackingRejectsMissingFile(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTracking("does-not-exist.env", "alice@example.com"); err == nil {
		t.Fatal("expected an error tracking a nonexistent path")
	}
}

func TestStartTrackingRejectsAlreadyTracked(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")
	if err := c.StartTracking(path, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	err := c.StartTracking(path, "bob@example.com")
	if err == nil || !errors.Is(err, seekerrors.ErrAlreadyTracked) {
		t.Fatalf("second StartTracking error = %v, want ErrAlreadyTracked", err)
	}
}

func TestAddRecipientWrapsKeyForNewRecipient(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")
	if err := c.StartTracking(path, "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	if err := c.AddRecipient(path, "bob@example.com"); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}
	recipients, err := c.Store.ListRecipients(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 2 {
		t.Fatalf("recipients = %v, want 2 entries", recipients)
	}
}

func TestStopTrackingRemovesEverything(t *testing.T) {
	c, _, vcs := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	path := touchFile(t, c.Root, "secrets.env")
	if err := c.StartTracking(path, "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	if err := c.StopTracking(path); err != nil {
		t.Fatalf("StopTracking: %v", err)
	}

	if _, err := c.Store.ListRecipients(path); !errors.Is(err, seekerrors.ErrNotTracked) {
		t.Fatalf("manifest still has an entry for %s after StopTracking", path)
	}
	has, err := c.Attrs.HasFilter(path)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("attribute entry survived StopTracking")
	}
	if len(vcs.ClearedCacheEntry) != 1 || vcs.ClearedCacheEntry[0] != path {
		t.Fatalf("ClearedCacheEntry = %v, want [%s]", vcs.ClearedCacheEntry, path)
	}
	if _, err := os.Stat(filepath.Join(c.Root, path)); !os.IsNotExist(err) {
		t.Fatal("working-directory file was not removed by StopTracking")
	}
}

func TestStatusReportsAllPaths(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	a := touchFile(t, c.Root, "a.env")
	b := touchFile(t, c.Root, "b.env")
	if err := c.StartTracking(a, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTracking(b, "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	reports, err := c.Status("")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("Status() returned %d reports, want 2", len(reports))
	}
	for _, r := range reports {
		if !r.FileExists {
			t.Errorf("Status(%s).FileExists = false", r.Path)
		}
		if !r.CanUnwrapKey {
			t.Errorf("Status(%s).CanUnwrapKey = false", r.Path)
		}
	}
}

func TestStatusSinglePath(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	a := touchFile(t, c.Root, "a.env")
	if err := c.StartTracking(a, "alice@example.com"); err != nil {
		t.Fatal(err)
	}

	reports, err := c.Status(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Path != a {
		t.Fatalf("Status(%s) = %+v", a, reports)
	}
}
