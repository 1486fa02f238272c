// Package ulid generates identifiers for sessions and requests.
package ulid

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

var (
	entropy     io.Reader
	entropyOnce sync.Once
)

func defaultEntropy() io.Reader {
	entropyOnce.Do(func() {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		entropy = &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rng, 0),
		}
	})
	return entropy
}

// Generator creates monotonic ULIDs. The zero value uses the wall clock
// and shared entropy.
type Generator struct {
	Now func() time.Time
}

func (g Generator) New() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return ulid.MustNew(ulid.Timestamp(now()), defaultEntropy()).String()
}

var defaultGenerator Generator

// GenerateID returns a new ULID using the wall clock.
func GenerateID() string {
	return defaultGenerator.New()
}

// ValidID reports whether id is a canonical ULID string. Lower case
// identifiers are rejected so they can be compared as strings.
func ValidID(id string) bool {
	parsed, err := ulid.ParseStrict(id)
	return err == nil && parsed.String() == id
}

// Time returns the creation time encoded in id.
func Time(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid id %q", id)
	}
	return ulid.Time(parsed.Time()), nil
}
