// Package seekerrors collects the error kinds named in spec.md §7. Each
// sentinel is wrapped with additional context by its raiser and matched
// with errors.Is/errors.As by callers that need to distinguish failure
// modes (the filter engine, in particular, downgrades some of these to
// warnings instead of propagating them).
package seekerrors

import "errors"

var (
	// ErrNotInitialized is raised by the config store when the manifest
	// file is absent.
	ErrNotInitialized = errors.New("seekgits: repository not initialized")

	// ErrCorruptManifest is raised when the manifest bytes do not parse,
	// the schema version is unrecognized, or a stored path is invalid.
	ErrCorruptManifest = errors.New("seekgits: manifest is corrupt")

	// ErrAlreadyTracked is raised when addTrackedFile targets a path that
	// is already present in the manifest.
	ErrAlreadyTracked = errors.New("seekgits: path already tracked")

	// ErrNotTracked is raised when a mutation targets a path absent from
	// the manifest.
	ErrNotTracked = errors.New("seekgits: path not tracked")

	// ErrRecipientDuplicate is raised when addRecipient targets a
	// recipient already present for the path.
	ErrRecipientDuplicate = errors.New("seekgits: recipient already has access")

	// ErrNoIdentity is raised by start-tracking when the asymmetric
	// provider reports no default private identity.
	ErrNoIdentity = errors.New("seekgits: no default recipient identity available")

	// ErrRecipientUnknown is raised by the recipient wrapper when the
	// named recipient has no usable public material.
	ErrRecipientUnknown = errors.New("seekgits: recipient unknown to provider")

	// ErrNoPrivateKey is raised by unwrap when no private material
	// matches any wrapped entry.
	ErrNoPrivateKey = errors.New("seekgits: no matching private key")

	// ErrUnwrapFailed is raised by unwrap for malformed wrapped-key input.
	ErrUnwrapFailed = errors.New("seekgits: failed to unwrap file key")

	// ErrNoAccess is raised by the config store when every wrapped entry
	// for a path fails to unwrap.
	ErrNoAccess = errors.New("seekgits: no recipient entry could be unwrapped")

	// ErrNotEncrypted is raised by decrypt when the input is missing the
	// magic prefix.
	ErrNotEncrypted = errors.New("seekgits: input is not an encrypted frame")

	// ErrProviderAbsent is raised when the external asymmetric provider
	// binary cannot be located.
	ErrProviderAbsent = errors.New("seekgits: asymmetric provider not installed")

	// ErrNotRepository is raised by init when the current directory is
	// not inside a host VCS repository.
	ErrNotRepository = errors.New("seekgits: not inside a repository")
)
