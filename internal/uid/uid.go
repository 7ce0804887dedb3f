// Package uid generates short, unguessable identifiers used to build
// unique certificate common names.
//
// An identifier is the hashids encoding of the time elapsed since a fixed
// epoch (2019-01-01 UTC), scaled to the precision selected by a size class.
// Each call keys the encoding with a fresh random salt, so two identifiers
// generated at the same instant still differ and the underlying timestamp
// cannot be recovered without the salt. The salt is never persisted: the
// identifier is a uniqueness and obfuscation device, not a credential.
package uid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	hashids "github.com/speps/go-hashids/v2"
)

// SizeClass selects the time resolution an identifier is derived from.
type SizeClass string

const (
	// SizeSmall derives identifiers with second precision.
	SizeSmall SizeClass = "small"

	// SizeMedium derives identifiers with millisecond precision.
	SizeMedium SizeClass = "medium"

	// SizeLarge derives identifiers with nanosecond precision.
	// This is the default.
	SizeLarge SizeClass = "large"
)

// ErrInvalidPrecision indicates an unrecognized size class was requested.
// This is a programming error, not a runtime condition.
var ErrInvalidPrecision = errors.New("invalid precision")

// epoch is the custom zero point. Counting from 2019 instead of 1970 keeps
// the encoded identifiers short.
var epoch = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

// saltLen is the number of raw random bytes drawn per identifier.
const saltLen = 24

// Generator produces identifiers from the current time and a per-call
// random salt. The zero value is not usable; call New.
type Generator struct {
	rand io.Reader
	now  func() time.Time
}

// New returns a Generator backed by the OS randomness source and the
// system clock.
func New() *Generator {
	return &Generator{rand: rand.Reader, now: time.Now}
}

// NewWithSource returns a Generator with an explicit randomness source and
// clock. This is intended for tests that need deterministic output.
func NewWithSource(random io.Reader, now func() time.Time) *Generator {
	return &Generator{rand: random, now: now}
}

// Generate returns a fresh identifier for the given size class. An empty
// size class selects SizeLarge. The salt is drawn anew on every call and
// discarded afterwards; callers must not cache identifiers across runs.
func (g *Generator) Generate(size SizeClass) (string, error) {
	scale, err := scaleFor(size)
	if err != nil {
		return "", err
	}

	salt, err := g.newSalt()
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	scaled := int64(g.now().UTC().Sub(epoch) / scale)
	return encode(salt, scaled)
}

// scaleFor maps a size class to the duration unit identifiers are counted in.
func scaleFor(size SizeClass) (time.Duration, error) {
	switch size {
	case SizeSmall:
		return time.Second, nil
	case SizeMedium:
		return time.Millisecond, nil
	case SizeLarge, "":
		return time.Nanosecond, nil
	default:
		return 0, fmt.Errorf("%w: %q (want small, medium or large)", ErrInvalidPrecision, size)
	}
}

// newSalt draws saltLen random bytes and hex-encodes them.
func (g *Generator) newSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// encode maps a non-negative integer to a short alphanumeric string using
// hashids keyed by salt. The mapping is deterministic for a fixed (salt, n)
// pair and reversible only with the salt.
func encode(salt string, n int64) (string, error) {
	data := hashids.NewData()
	data.Salt = salt

	h, err := hashids.NewWithData(data)
	if err != nil {
		return "", fmt.Errorf("failed to initialize codec: %w", err)
	}

	id, err := h.EncodeInt64([]int64{n})
	if err != nil {
		return "", fmt.Errorf("failed to encode identifier: %w", err)
	}
	return id, nil
}
