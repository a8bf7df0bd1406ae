package linkcenter

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// Linking codes have a fixed prefix, a date and a 4-character alphanumeric
// suffix, e.g. LINK-280869-7KQ2. Ambiguous characters are excluded.
const (
	codePrefix    = "LINK"
	suffixLength  = 4
	codeAlphabet  = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	datePattern   = `\d{6}`
	suffixPattern = `[A-Z0-9]{4}`
)

var codeRegexp = regexp.MustCompile(`^` + codePrefix + `-` + datePattern + `-` + suffixPattern + `$`)

// NewLinkingCode generates a fresh linking code for the given day.
func NewLinkingCode(t time.Time) string {
	buddhistYear := (t.Year() + 543) % 100
	date := fmt.Sprintf("%02d%02d%02d", t.Day(), int(t.Month()), buddhistYear)
	return fmt.Sprintf("%s-%s-%s", codePrefix, date, randomSuffix())
}

// IsLinkingCode reports whether the text matches the linking-code format.
func IsLinkingCode(text string) bool {
	return codeRegexp.MatchString(text)
}

func randomSuffix() string {
	result := make([]byte, suffixLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range result {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a fixed character rather than panicking intake.
			result[i] = codeAlphabet[0]
			continue
		}
		result[i] = codeAlphabet[num.Int64()]
	}
	return string(result)
}
