package app

import (
	"fmt"
	"strconv"
	"strings"

	"rewind-go/internal/rewind"
)

// ParseRange parses a timeline range: "N..M", "N.." or "..M" select sequence
// ids inclusively, a bare "N" selects one entry and "" selects everything.
func ParseRange(s string, limit int) (rewind.Range, error) {
	r := rewind.Range{Limit: limit}
	if limit < 0 {
		return r, fmt.Errorf("limit must not be negative")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return r, nil
	}

	from, to, isRange := strings.Cut(s, "..")
	if !isRange {
		to = from
	}

	var err error
	if r.From, err = parseSeq(from); err != nil {
		return r, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if r.To, err = parseSeq(to); err != nil {
		return r, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if !isRange && r.From == 0 {
		return r, fmt.Errorf("invalid range %q", s)
	}
	if r.From > 0 && r.To > 0 && r.From > r.To {
		return r, fmt.Errorf("invalid range %q: start after end", s)
	}
	return r, nil
}

func parseSeq(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a sequence id", s)
	}
	return n, nil
}
