// Package keystore manages the monthly ECDSA P-256 signing keypairs.
// Each calendar month has exactly one keypair, addressed by its period id
// ("2026-08"), which doubles as the kid embedded in token headers. Key
// material is immutable once generated; rotation happens implicitly when the
// calendar rolls over and the previous two periods stay verifiable.
package keystore

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"regexp"
	"time"
)

// Alg is the JOSE algorithm bound to every period key.
const Alg = "ES256"

// VerifyWindow is how many previous periods remain in the published key set
// alongside the current one.
const VerifyWindow = 2

// ErrKeyNotFound reports that no key material exists for a period.
var ErrKeyNotFound = errors.New("keystore: key not found")

// Key is the handle for one signing period's material. Private is nil for
// verification-only loads.
type Key struct {
	Period  string
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
}

// Store is the injected key-store handle. Implementations must be safe for
// concurrent use; EnsurePeriodKey is idempotent and never regenerates
// existing material.
type Store interface {
	EnsurePeriodKey(ctx context.Context, period string) (*Key, error)
	Load(ctx context.Context, period string) (*Key, error)
	ListPeriods(ctx context.Context) ([]string, error)
}

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriod reports whether s is a well-formed YYYY-MM period id.
func ValidPeriod(s string) bool {
	return periodPattern.MatchString(s)
}

// CurrentPeriod returns the period id for the given wall-clock time.
func CurrentPeriod(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// Window returns the exposed rotation window for the given time: the current
// period first, then the previous VerifyWindow periods.
func Window(now time.Time) []string {
	now = now.UTC()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]string, 0, VerifyWindow+1)
	for i := 0; i <= VerifyWindow; i++ {
		periods = append(periods, month.AddDate(0, -i, 0).Format("2006-01"))
	}
	return periods
}

// InWindow reports whether the period is within the rolling verification
// window at the given time.
func InWindow(period string, now time.Time) bool {
	for _, p := range Window(now) {
		if p == period {
			return true
		}
	}
	return false
}
