// Package filter implements the clean/smudge/textconv content filter
// (spec.md §4.5): the streaming transform the host VCS spawns once per
// file event. Every entry point here reads its full input into memory
// before transforming it — the deterministic cipher's HMAC pass forces a
// full read anyway (spec.md §9) — and never exits non-zero, since filter
// pass-through always succeeds (spec.md §6).
//
// Each invocation takes explicit io.Reader/io.Writer parameters instead of
// touching os.Stdin/os.Stdout directly, the same shape cmd/age/age.go's
// encrypt/decrypt helpers use, so tests can drive the engine with buffers
// and cmd/seekgits can wire real stdio.
package filter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wengineering-works/seekgits/internal/cipher"
	"github.com/wengineering-works/seekgits/internal/logger"
	"github.com/wengineering-works/seekgits/internal/manifest"
	"github.com/wengineering-works/seekgits/internal/seekerrors"
)

// Engine drives clean/smudge/textconv for one repository. It holds no
// mutable state across invocations beyond the Store and Logger it was
// constructed with; the Store is read-only from the engine's perspective
// (spec.md §5).
type Engine struct {
	store *manifest.Store
	log   *logger.Logger
}

// NewEngine returns an Engine backed by store, logging diagnostics through
// log (or logger.Global if log is nil).
func NewEngine(store *manifest.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Global
	}
	return &Engine{store: store, log: log}
}

// Clean implements the ingest-time transform (spec.md §4.5): it encrypts
// path's content unless the manifest is missing, path is untracked, the
// input is already an EncryptedFrame, or the FileKey cannot be obtained —
// in every one of those cases it passes the input through unchanged
// rather than ever dropping content.
func (e *Engine) Clean(w io.Writer, r io.Reader, path string) error {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("seekgits: reading input for %s: %w", path, err)
	}

	if cipher.IsEncryptedFrame(plaintext) {
		return writeAll(w, plaintext)
	}

	fk, err := e.store.GetFileKey(path)
	if err != nil {
		if errors.Is(err, seekerrors.ErrNotInitialized) || errors.Is(err, seekerrors.ErrNotTracked) {
			return writeAll(w, plaintext)
		}
		e.log.Warningf("cannot obtain file key for %s, writing plaintext unchanged: %v", path, err)
		return writeAll(w, plaintext)
	}

	frame, err := cipher.Encrypt(plaintext, fk)
	if err != nil {
		e.log.Warningf("encryption failed for %s, writing plaintext unchanged: %v", path, err)
		return writeAll(w, plaintext)
	}
	return writeAll(w, frame)
}

// Smudge implements the egress-time transform (spec.md §4.5): it decrypts
// path's content if it carries the magic prefix, passes already-plaintext
// content through unchanged, and otherwise writes a visible placeholder
// when the FileKey cannot be unwrapped, never ciphertext or silence.
func (e *Engine) Smudge(w io.Writer, r io.Reader, path string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("seekgits: reading input for %s: %w", path, err)
	}

	if !cipher.IsEncryptedFrame(data) {
		return writeAll(w, data)
	}

	fk, err := e.store.GetFileKey(path)
	if err != nil {
		return writeAll(w, []byte(fmt.Sprintf("[ENCRYPTED: cannot decrypt %s]\n", path)))
	}

	plaintext, err := cipher.Decrypt(data, fk)
	if err != nil {
		return writeAll(w, []byte(fmt.Sprintf("[ENCRYPTED: cannot decrypt %s]\n", path)))
	}
	return writeAll(w, plaintext)
}

// Textconv implements the diff-view transform (spec.md §4.5): identical
// to Smudge, but the content comes from a filesystem path rather than
// stdin.
func (e *Engine) Textconv(w io.Writer, diffPath string, path string) error {
	f, err := os.Open(diffPath)
	if err != nil {
		return fmt.Errorf("seekgits: opening %s for textconv: %w", diffPath, err)
	}
	defer f.Close()
	return e.Smudge(w, f, path)
}

func writeAll(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}
