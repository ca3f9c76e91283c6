// Package cipher implements the deterministic symmetric construction from
// spec.md §4.1: AES-256-CTR keyed by one half of a FileKey, with the
// counter IV derived by HMAC-SHA256 over the whole plaintext using the
// other half. The construction is deliberately unauthenticated — see
// spec.md §7 and §9 — so decrypt never verifies a MAC; a wrong key
// produces garbage, not an error.
package cipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/wengineering-works/seekgits/internal/seekerrors"
)

// FileKeySize is the length in bytes of a FileKey (spec.md §3): 32 bytes of
// AES-256 key material followed by 32 bytes of HMAC-SHA256 key material.
const FileKeySize = 64

// MagicLen, NonceLen and FrameOverhead describe the fixed portion of an
// EncryptedFrame (spec.md §3, §6).
const (
	MagicLen      = 10
	NonceLen      = 32
	FrameOverhead = MagicLen + NonceLen
)

// Magic is the fixed ten-byte prefix of an EncryptedFrame.
var Magic = [MagicLen]byte{0x00, 0x53, 0x45, 0x45, 0x4B, 0x47, 0x49, 0x54, 0x53, 0x00}

// FileKey is the 64-byte per-path symmetric secret (spec.md §3). It is
// never persisted in cleartext — only WrappedKey forms reach storage.
type FileKey [FileKeySize]byte

// NewFileKey validates that b is exactly FileKeySize bytes and returns it
// as a FileKey, copying the input so callers may reuse or zero their
// buffer afterwards.
func NewFileKey(b []byte) (FileKey, error) {
	var k FileKey
	if len(b) != FileKeySize {
		return k, fmt.Errorf("seekgits: file key must be %d bytes, got %d", FileKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func (k FileKey) aesKey() []byte  { return k[0:32] }
func (k FileKey) hmacKey() []byte { return k[32:64] }

// deriveNonce computes the 32-byte HMAC-SHA256 nonce over the full
// plaintext buffer (spec.md §4.1). This forces a full read of the
// plaintext before encryption can begin — see spec.md §9 on why the
// construction cannot stream.
func deriveNonce(hmacKey, plaintext []byte) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(plaintext)
	return mac.Sum(nil)
}

func newCTRStream(aesKey, nonce []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewCTR(block, nonce[:aes.BlockSize]), nil
}

// Encrypt produces MAGIC || nonce || ciphertext for plaintext under k. The
// output is deterministic: the same (plaintext, k) pair always yields the
// same bytes (spec.md §8, property 2).
func Encrypt(plaintext []byte, k FileKey) ([]byte, error) {
	nonce := deriveNonce(k.hmacKey(), plaintext)

	stream, err := newCTRStream(k.aesKey(), nonce)
	if err != nil {
		return nil, fmt.Errorf("seekgits: creating AES-CTR cipher: %w", err)
	}

	out := make([]byte, FrameOverhead+len(plaintext))
	copy(out[0:MagicLen], Magic[:])
	copy(out[MagicLen:FrameOverhead], nonce)
	stream.XORKeyStream(out[FrameOverhead:], plaintext)

	return out, nil
}

// Decrypt reverses Encrypt. It returns seekerrors.ErrNotEncrypted if frame
// does not begin with the magic prefix, and an error if the frame is too
// short to hold the magic prefix and nonce. It does not verify the nonce was
// produced by this key: a wrong aes_key yields garbage plaintext, not an
// error (spec.md §4.1, §7, §9).
func Decrypt(frame []byte, k FileKey) ([]byte, error) {
	if !IsEncryptedFrame(frame) {
		return nil, seekerrors.ErrNotEncrypted
	}
	if len(frame) < FrameOverhead {
		return nil, fmt.Errorf("seekgits: encrypted frame is %d bytes, shorter than its %d-byte header", len(frame), FrameOverhead)
	}
	nonce := frame[MagicLen:FrameOverhead]
	ciphertext := frame[FrameOverhead:]

	stream, err := newCTRStream(k.aesKey(), nonce)
	if err != nil {
		return nil, fmt.Errorf("seekgits: creating AES-CTR cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// IsEncryptedFrame reports whether b is long enough to carry a magic
// prefix and begins with it (spec.md §4.1 "Format detection").
func IsEncryptedFrame(b []byte) bool {
	return len(b) >= MagicLen && bytes.Equal(b[:MagicLen], Magic[:])
}
