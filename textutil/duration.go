package textutil

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidDuration is returned by ParseDuration for input it cannot read.
var ErrInvalidDuration = errors.New("invalid duration")

var (
	durationToken = regexp.MustCompile(`^(\d*\.?\d+)\s*([a-zµμ]*)`)
	durationGlue  = regexp.MustCompile(`^[\s,]*(and\s+)?`)
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond, "nanosecond": time.Nanosecond, "nanoseconds": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond, "μs": time.Microsecond,
	"microsecond": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "msec": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
	"w": week, "wk": week, "wks": week, "week": week, "weeks": week,
	"y": year, "yr": year, "yrs": year, "year": year, "years": year,
}

// ParseDuration reads a human-written duration. It accepts everything
// time.ParseDuration does plus days, weeks, years, long unit names and
// whitespace or commas between terms:
//
//	ParseDuration("1d 2h")        // 26h
//	ParseDuration("1.5 hours")    // 1h30m
//	ParseDuration("2 weeks, 1d")  // 360h
//
// A bare number is read as milliseconds. A leading '-' negates the result.
func ParseDuration(s string) (time.Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, errors.Wrap(ErrInvalidDuration, "empty string")
	}
	if d, err := time.ParseDuration(in); err == nil {
		return d, nil
	}

	neg := false
	switch in[0] {
	case '-':
		neg = true
		in = in[1:]
	case '+':
		in = in[1:]
	}

	var total float64
	rest := strings.TrimSpace(in)
	for rest != "" {
		m := durationToken.FindStringSubmatch(rest)
		if m == nil {
			return 0, errors.Wrapf(ErrInvalidDuration, "unexpected %q in %q", rest, s)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidDuration, "bad number %q in %q", m[1], s)
		}

		unit := time.Millisecond
		if m[2] != "" {
			u, ok := durationUnits[m[2]]
			if !ok {
				return 0, errors.Wrapf(ErrInvalidDuration, "unknown unit %q in %q", m[2], s)
			}
			unit = u
		}

		total += n * float64(unit)
		if total > math.MaxInt64 {
			return 0, errors.Wrapf(ErrInvalidDuration, "%q overflows", s)
		}

		rest = rest[len(m[0]):]
		rest = rest[len(durationGlue.FindString(rest)):]
	}

	d := time.Duration(math.Round(total))
	if neg {
		d = -d
	}
	return d, nil
}

// DurationOr is ParseDuration returning def for input it cannot read.
func DurationOr(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
