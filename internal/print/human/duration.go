package human

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration which also parses days and weeks, and unit
// names spelled out in full ("2 days", "1 hour").
type Duration time.Duration

const (
	Nanosecond  = Duration(time.Nanosecond)
	Microsecond = Duration(time.Microsecond)
	Millisecond = Duration(time.Millisecond)
	Second      = Duration(time.Second)
	Minute      = Duration(time.Minute)
	Hour        = Duration(time.Hour)
	Day         = 24 * Hour
	Week        = 7 * Day
)

type durationUnit struct {
	scale Duration
	names []string
}

// Ordered from the largest to the smallest unit.
var durationUnits = [...]durationUnit{
	{Week, []string{"w", "week", "weeks"}},
	{Day, []string{"d", "day", "days"}},
	{Hour, []string{"h", "hour", "hours"}},
	{Minute, []string{"m", "min", "minute", "minutes"}},
	{Second, []string{"s", "sec", "second", "seconds"}},
	{Millisecond, []string{"ms", "millisecond", "milliseconds"}},
	{Microsecond, []string{"µs", "us", "microsecond", "microseconds"}},
	{Nanosecond, []string{"ns", "nanosecond", "nanoseconds"}},
}

func lookupDurationUnit(unit string) (Duration, bool) {
	for _, u := range durationUnits {
		for _, name := range u.names {
			if strings.EqualFold(unit, name) {
				return u.scale, true
			}
		}
	}
	return 0, false
}

// ParseDuration parses durations like "1h30m", "2d" or "1 week". A bare zero is
// accepted without unit.
func ParseDuration(s string) (Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return Duration(d), nil
	}
	number, unit := splitUnit(s)
	f, ok := parseNumber(number)
	if !ok {
		return 0, fmt.Errorf("malformed duration: %q", s)
	}
	scale, ok := lookupDurationUnit(unit)
	if !ok {
		return 0, fmt.Errorf("malformed duration: %q: unknown unit %q", s, unit)
	}
	return Duration(f * float64(scale)), nil
}

func (d Duration) String() string {
	if d < 0 {
		return "-" + (-d).String()
	}
	for _, u := range durationUnits {
		if d >= u.scale {
			return ftoa(float64(d), float64(u.scale)) + u.names[0]
		}
	}
	return "0s"
}

func (d Duration) Get() any { return time.Duration(d) }

func (d *Duration) Set(s string) error {
	p, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.Set(s)
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.Set(s)
}

var (
	_ fmt.Stringer = Duration(0)
	_ flag.Getter  = (*Duration)(nil)

	_ encoding.TextMarshaler   = Duration(0)
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ json.Marshaler           = Duration(0)
	_ json.Unmarshaler         = (*Duration)(nil)
	_ yaml.Marshaler           = Duration(0)
	_ yaml.Unmarshaler         = (*Duration)(nil)
)
