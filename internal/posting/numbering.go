package posting

import (
	"fmt"
	"strings"
	"time"
)

const maxNumberLen = 64

// FormatNumber renders PREFIX-YYYYMMDD-NNNN. Sequences past 9999 keep growing.
func FormatNumber(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("20060102"), seq)
}

// numberPeriod is the document_sequences period a posting date falls in.
func numberPeriod(at time.Time) string {
	return at.Format("20060102")
}

// normalizeNumber trims a user supplied reference number.
func normalizeNumber(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if len(n) > maxNumberLen {
		return "", ErrInvalidNumber
	}
	return n, nil
}
