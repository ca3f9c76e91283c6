// Package gpgwrap implements the recipient wrapper (spec.md §4.2): wrapping
// and unwrapping a 64-byte FileKey through an external asymmetric
// provider. The provider is invoked as a subprocess that receives raw
// bytes on stdin and produces raw bytes on stdout (spec.md §6,
// "External provider contract") — there is no structured handshake here,
// unlike the teacher's age plugin stanza protocol
// (internal/plugin/client.go), because the spec only asks for one-shot
// streaming semantics.
package gpgwrap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	execabs "golang.org/x/sys/execabs"

	"github.com/wengineering-works/seekgits/internal/seekerrors"
)

// Provider is the contract lifecycle and filter code depend on — never the
// concrete gpg binary — the same separation the teacher draws between
// age.Recipient and its X25519/SSH/plugin implementations.
type Provider interface {
	// Wrap encrypts fileKey to recipient, returning an opaque WrappedKey.
	Wrap(recipient string, fileKey []byte) ([]byte, error)
	// Unwrap decrypts wrapped using whatever private material the host
	// environment exposes.
	Unwrap(wrapped []byte) ([]byte, error)
	// DefaultRecipient reports the first private identity available in
	// the host environment, or ok=false if none.
	DefaultRecipient() (recipient string, ok bool, err error)
	// RecipientExists is a best-effort existence check against the
	// public portion of the host environment.
	RecipientExists(recipient string) (bool, error)
}

// GPGProvider shells out to the gpg(1) binary, trusting recipients
// unconditionally so the tool can run non-interactively (spec.md §4.2,
// "trust as acceptable for automation").
type GPGProvider struct {
	// Binary is the resolved path to the gpg executable. Populated by
	// NewGPGProvider via execabs, which resists PATH-hijacking the way
	// the teacher resolves its plugin binaries.
	Binary string
}

// NewGPGProvider resolves the gpg binary on PATH, failing with
// seekerrors.ErrProviderAbsent if it cannot be found.
func NewGPGProvider() (*GPGProvider, error) {
	bin, err := execabs.LookPath("gpg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", seekerrors.ErrProviderAbsent, err)
	}
	return &GPGProvider{Binary: bin}, nil
}

func (g *GPGProvider) run(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("seekgits: gpg %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Wrap streams fileKey through "gpg --encrypt -r recipient" and returns
// the resulting ciphertext as the WrappedKey (spec.md §4.2). It fails
// with seekerrors.ErrRecipientUnknown if gpg reports the recipient has no
// usable public key.
func (g *GPGProvider) Wrap(recipient string, fileKey []byte) ([]byte, error) {
	out, err := g.run(context.Background(), fileKey,
		"--batch", "--yes", "--trust-model", "always",
		"--recipient", recipient, "--encrypt")
	if err != nil {
		if strings.Contains(err.Error(), "No public key") || strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %s", seekerrors.ErrRecipientUnknown, recipient)
		}
		return nil, err
	}
	return out, nil
}

// Unwrap streams wrapped through "gpg --decrypt" and returns the raw
// FileKey bytes. It fails with seekerrors.ErrNoPrivateKey when no private
// material matches and seekerrors.ErrUnwrapFailed for malformed input
// (spec.md §4.2).
func (g *GPGProvider) Unwrap(wrapped []byte) ([]byte, error) {
	out, err := g.run(context.Background(), wrapped, "--batch", "--quiet", "--decrypt")
	if err != nil {
		if strings.Contains(err.Error(), "No secret key") || strings.Contains(err.Error(), "decryption failed") {
			return nil, fmt.Errorf("%w", seekerrors.ErrNoPrivateKey)
		}
		return nil, fmt.Errorf("%w: %v", seekerrors.ErrUnwrapFailed, err)
	}
	return out, nil
}

// DefaultRecipient reports the first secret key's primary user ID on the
// host keyring, used when start-tracking is invoked without an explicit
// recipient (spec.md §4.2, §4.6).
func (g *GPGProvider) DefaultRecipient() (string, bool, error) {
	out, err := g.run(context.Background(), nil, "--batch", "--list-secret-keys", "--with-colons")
	if err != nil {
		return "", false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) > 9 && fields[0] == "uid" && fields[9] != "" {
			return fields[9], true, nil
		}
	}
	return "", false, nil
}

// RecipientExists checks the public keyring for recipient, returning
// false rather than an error when gpg simply finds no match.
func (g *GPGProvider) RecipientExists(recipient string) (bool, error) {
	out, err := g.run(context.Background(), nil, "--batch", "--list-keys", "--with-colons", recipient)
	if err != nil {
		return false, nil
	}
	return strings.Contains(string(out), "pub:"), nil
}
