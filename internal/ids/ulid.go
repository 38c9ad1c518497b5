// Package ids generates message identifiers.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a time-sortable ULID encoded as a 26-character string.
// Identifiers created within the same millisecond are strictly increasing.
func New() string {
	return At(time.Now())
}

// At returns a ULID whose timestamp component is t. Times a ULID cannot
// encode are clamped: anything before the Unix epoch encodes as the epoch,
// anything after the largest ULID time as that time.
func At(t time.Time) string {
	ms := clamp(t)

	entropyMu.Lock()
	id, err := ulid.New(ms, entropy)
	entropyMu.Unlock()
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		return ulid.MustNew(ms, rand.Reader).String()
	}
	return id.String()
}

// CheckTime reports an error when t cannot be encoded in a ULID without
// clamping.
func CheckTime(t time.Time) error {
	if ms := t.UnixMilli(); ms < 0 || uint64(ms) > ulid.MaxTime() {
		return fmt.Errorf("time %s is outside the ULID range [%s, %s]",
			t.UTC().Format(time.RFC3339), time.UnixMilli(0).UTC().Format(time.RFC3339),
			ulid.Time(ulid.MaxTime()).UTC().Format(time.RFC3339))
	}
	return nil
}

func clamp(t time.Time) uint64 {
	ms := t.UnixMilli()
	switch {
	case ms < 0:
		return 0
	case uint64(ms) > ulid.MaxTime():
		return ulid.MaxTime()
	default:
		return uint64(ms)
	}
}
