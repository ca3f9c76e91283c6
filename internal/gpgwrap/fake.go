package gpgwrap

import (
	"bytes"
	"fmt"

	"github.com/wengineering-works/seekgits/internal/seekerrors"
)

// FakeProvider is an in-memory Provider used by tests throughout this
// module, the same role the teacher's test suite fills by scripting a
// stand-in plugin binary instead of exec'ing a real one.
type FakeProvider struct {
	// PublicKeys is the set of recipients this provider can wrap to.
	PublicKeys map[string]bool
	// PrivateKeys is the set of recipients this provider can unwrap for.
	PrivateKeys map[string]bool
	// Default, if set, is returned by DefaultRecipient.
	Default string
}

// NewFakeProvider returns a FakeProvider that can wrap to and unwrap for
// every recipient in identities.
func NewFakeProvider(identities ...string) *FakeProvider {
	p := &FakeProvider{PublicKeys: map[string]bool{}, PrivateKeys: map[string]bool{}}
	for _, id := range identities {
		p.PublicKeys[id] = true
		p.PrivateKeys[id] = true
	}
	if len(identities) > 0 {
		p.Default = identities[0]
	}
	return p
}

const fakeWrapSep = "\x00wrapped-for\x00"

// Wrap produces a deterministic, reversible-only-by-this-fake encoding
// tagging fileKey with recipient, so Unwrap can recover it without any
// real asymmetric math.
func (p *FakeProvider) Wrap(recipient string, fileKey []byte) ([]byte, error) {
	if !p.PublicKeys[recipient] {
		return nil, fmt.Errorf("%w: %s", seekerrors.ErrRecipientUnknown, recipient)
	}
	out := append([]byte(recipient+fakeWrapSep), fileKey...)
	return out, nil
}

func (p *FakeProvider) Unwrap(wrapped []byte) ([]byte, error) {
	idx := bytes.Index(wrapped, []byte(fakeWrapSep))
	if idx < 0 {
		return nil, fmt.Errorf("%w", seekerrors.ErrUnwrapFailed)
	}
	recipient := string(wrapped[:idx])
	if !p.PrivateKeys[recipient] {
		return nil, fmt.Errorf("%w", seekerrors.ErrNoPrivateKey)
	}
	return wrapped[idx+len(fakeWrapSep):], nil
}

func (p *FakeProvider) DefaultRecipient() (string, bool, error) {
	if p.Default == "" {
		return "", false, nil
	}
	return p.Default, true, nil
}

func (p *FakeProvider) RecipientExists(recipient string) (bool, error) {
	return p.PublicKeys[recipient], nil
}

var _ Provider = (*FakeProvider)(nil)
