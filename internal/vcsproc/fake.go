package vcsproc

// FakeVCS is an in-memory VCS used by lifecycle tests, recording the
// calls made to it instead of shelling out to a real git binary.
type FakeVCS struct {
	Root              string
	Config            map[string]string
	StagedPaths       []string
	Renormalized      []string
	ClearedCacheEntry []string
}

// NewFakeVCS returns a FakeVCS whose RepositoryRoot always reports root.
func NewFakeVCS(root string) *FakeVCS {
	return &FakeVCS{Root: root, Config: map[string]string{}}
}

func (f *FakeVCS) RepositoryRoot(dir string) (string, error) {
	return f.Root, nil
}

func (f *FakeVCS) SetConfig(root, key, value string) error {
	f.Config[key] = value
	return nil
}

func (f *FakeVCS) StagePath(root, path string) error {
	f.StagedPaths = append(f.StagedPaths, path)
	return nil
}

func (f *FakeVCS) RenormalizePath(root, path string) error {
	f.Renormalized = append(f.Renormalized, path)
	return nil
}

func (f *FakeVCS) ClearCachedEntry(root, path string) error {
	f.ClearedCacheEntry = append(f.ClearedCacheEntry, path)
	return nil
}

var _ VCS = (*FakeVCS)(nil)
