package booking

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	codePrefix   = "RMY"
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// newConfirmationCode builds a human-readable code: a fixed prefix, the
// creation time in base36, and four random characters. The random tail
// disambiguates bookings created in the same second; the store's unique
// index catches the residual collisions and the service retries once.
func newConfirmationCode(now time.Time) string {
	var sb strings.Builder
	sb.WriteString(codePrefix)
	sb.WriteString(strings.ToUpper(strconv.FormatInt(now.Unix(), 36)))
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < 4; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a time-derived index.
			n = big.NewInt(now.UnixNano() >> uint(i*5) & 31)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String()
}
