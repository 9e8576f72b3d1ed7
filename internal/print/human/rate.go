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

// Rate is a number of events per second.
//
// Parsing accepts an optional time unit after a slash ("100/s", "5 / minute",
// "3000/h"); without unit the rate is per second.
type Rate float64

const (
	PerSecond Rate = 1
	PerMinute Rate = PerSecond / 60
	PerHour   Rate = PerMinute / 60
)

func ParseRate(s string) (Rate, error) {
	number, per, _ := strings.Cut(s, "/")
	f, ok := parseNumber(strings.TrimSpace(number))
	if !ok || f < 0 {
		return 0, fmt.Errorf("malformed rate: %q", s)
	}
	scale := Second
	if per = strings.TrimSpace(per); per != "" {
		if scale, ok = lookupDurationUnit(per); !ok {
			return 0, fmt.Errorf("malformed rate: %q: unknown unit %q", s, per)
		}
	}
	return Rate(f / time.Duration(scale).Seconds()), nil
}

func (r Rate) String() string { return ftoa(float64(r), 1) + "/s" }

func (r Rate) Get() any { return float64(r) }

func (r *Rate) Set(s string) error {
	p, err := ParseRate(s)
	if err != nil {
		return err
	}
	*r = p
	return nil
}

func (r Rate) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rate) UnmarshalText(b []byte) error { return r.Set(string(b)) }

func (r Rate) MarshalJSON() ([]byte, error) { return json.Marshal(float64(r)) }

func (r *Rate) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, (*float64)(r)) }

func (r Rate) MarshalYAML() (any, error) { return r.String(), nil }

func (r *Rate) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return r.Set(s)
}

var (
	_ fmt.Stringer = Rate(0)
	_ flag.Getter  = (*Rate)(nil)

	_ encoding.TextMarshaler   = Rate(0)
	_ encoding.TextUnmarshaler = (*Rate)(nil)
	_ json.Marshaler           = Rate(0)
	_ json.Unmarshaler         = (*Rate)(nil)
	_ yaml.Marshaler           = Rate(0)
	_ yaml.Unmarshaler         = (*Rate)(nil)
)
