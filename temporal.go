package wizard

import (
	"strings"
	"time"
)

// rfc3339Label names the fast-path layout in TemporalParseError listings.
const rfc3339Label = "RFC3339"

// timeLayouts resolves the layouts tried for a field: its format= tag when
// present, the configured fallbacks otherwise.
func timeLayouts(cfg *Config, ann annotations) []string {
	if len(ann.layouts) > 0 {
		return ann.layouts
	}
	return cfg.Layouts
}

// decodeTemporal converts a tree scalar to a time. Already-correct values
// pass through; numeric epochs go through the timestamp constructor; text
// takes the RFC 3339 fast path and then each declared layout in order.
func decodeTemporal(cfg *Config, ann annotations, in any) (time.Time, error) {
	loc := cfg.location()
	if ann.loc != nil {
		loc = ann.loc
	}

	switch v := in.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		layouts := timeLayouts(cfg, ann)
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, nil
			}
		}
		tried := append([]string{rfc3339Label}, layouts...)
		return time.Time{}, newTemporalParseError(v, tried)
	}

	// Numeric epoch seconds, fractional part preserved.
	f, err := asFloat64(in)
	if err != nil {
		return time.Time{}, newTemporalParseError(in, []string{rfc3339Label})
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), nil
}

// encodeTemporal renders a time per the configured output mode: RFC 3339
// text with a zero offset normalized to literal 'Z', or epoch seconds.
func encodeTemporal(cfg *Config, ann annotations, t time.Time) any {
	if ann.unix || cfg.TimeMode == TimeUnix {
		return t.UTC().Unix()
	}
	if _, offset := t.Zone(); offset == 0 {
		// Fixed +00:00 zones render as 'Z'.
		t = t.UTC()
	}
	return t.Format(time.RFC3339Nano)
}

// encodeDuration renders a duration: text form by default, seconds in unix
// mode.
func encodeDuration(cfg *Config, ann annotations, d time.Duration) any {
	if ann.unix || cfg.TimeMode == TimeUnix {
		return d.Seconds()
	}
	return d.String()
}
