// Package save persists characters as signed, compressed snapshots and
// upgrades old snapshots through versioned migrations.
package save

import (
	"bytes"
	"compress/zlib"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrSignature means the payload was not produced with this secret or
	// was altered afterwards.
	ErrSignature = errors.New("save: signature mismatch")
	// ErrCorrupt means the payload is signed but cannot be decoded.
	ErrCorrupt = errors.New("save: corrupt payload")
)

// SignatureSize is the length of the HMAC prefix.
const SignatureSize = sha256.Size

const (
	hkdfSalt = "miridle-save"
	hkdfInfo = "snapshot-hmac"
)

// Codec signs and compresses snapshots: HMAC-SHA256 || zlib(JSON).
type Codec struct {
	key []byte
}

// NewCodec derives the signing key from secret.
func NewCodec(secret string) *Codec {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(secret), []byte(hkdfSalt), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255 blocks.
		panic(err)
	}
	return &Codec{key: key}
}

func (c *Codec) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(body)
	return mac.Sum(nil)
}

// Encode serialises v.
func (c *Codec) Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("save: marshal: %w", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("save: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("save: compress: %w", err)
	}
	body := buf.Bytes()
	out := make([]byte, 0, SignatureSize+len(body))
	out = append(out, c.sign(body)...)
	return append(out, body...), nil
}

// Decode verifies the signature and unpacks data into v.
func (c *Codec) Decode(data []byte, v any) error {
	if len(data) < SignatureSize {
		return fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	sig, body := data[:SignatureSize], data[SignatureSize:]
	if !hmac.Equal(sig, c.sign(body)) {
		return ErrSignature
	}
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
