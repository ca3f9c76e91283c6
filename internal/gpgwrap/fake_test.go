package gpgwrap

import (
	"bytes"
	"testing"
)

func TestFakeProviderWrapUnwrapRoundTrip(t *testing.T) {
	p := NewFakeProvider("alice@example.com", "bob@example.com")

	fileKey := bytes.Repeat([]byte{0x42}, 64)
	wrapped, err := p.Wrap("alice@example.com", fileKey)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	got, err := p.Unwrap(wrapped)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, fileKey) {
		t.Fatalf("unwrap mismatch: got % x want % x", got, fileKey)
	}
}

func TestFakeProviderUnwrapWithoutPrivateKey(t *testing.T) {
	owner := NewFakeProvider("alice@example.com")
	outsider := NewFakeProvider("carol@example.com")

	wrapped, err := owner.Wrap("alice@example.com", []byte("filekeyfilekeyfilekeyfilekeyfilekeyfilekeyfilekeyfilekeyfileke"))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	if _, err := outsider.Unwrap(wrapped); err == nil {
		t.Fatal("expected an error unwrapping without the matching private key")
	}
}

func TestFakeProviderDefaultRecipient(t *testing.T) {
	p := NewFakeProvider("alice@example.com")
	recipient, ok, err := p.DefaultRecipient()
	if err != nil || !ok || recipient != "alice@example.com" {
		t.Fatalf("DefaultRecipient() = %q, %v, %v", recipient, ok, err)
	}

	empty := &FakeProvider{}
	_, ok, err = empty.DefaultRecipient()
	if err != nil || ok {
		t.Fatalf("DefaultRecipient() on empty provider = ok:%v err:%v, want ok:false", ok, err)
	}
}
