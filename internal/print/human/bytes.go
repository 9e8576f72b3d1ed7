package human

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bytes is a number of bytes.
//
// Parsing accepts decimal units (KB, MB, ...) and binary units (KiB, MiB, ...)
// as well as their one or two letter abbreviations (K, Ki, ...). Formatting
// always uses binary units.
type Bytes uint64

const (
	B Bytes = 1

	KB Bytes = 1000 * B
	MB Bytes = 1000 * KB
	GB Bytes = 1000 * MB
	TB Bytes = 1000 * GB

	KiB Bytes = 1024 * B
	MiB Bytes = 1024 * KiB
	GiB Bytes = 1024 * MiB
	TiB Bytes = 1024 * GiB
)

type byteUnit struct {
	scale Bytes
	names []string
}

// Ordered from the largest to the smallest binary unit; String picks the
// first one not larger than the value.
var binaryUnits = [...]byteUnit{
	{TiB, []string{"TiB", "Ti"}},
	{GiB, []string{"GiB", "Gi"}},
	{MiB, []string{"MiB", "Mi"}},
	{KiB, []string{"KiB", "Ki"}},
	{B, []string{"B"}},
}

var decimalUnits = [...]byteUnit{
	{TB, []string{"TB", "T"}},
	{GB, []string{"GB", "G"}},
	{MB, []string{"MB", "M"}},
	{KB, []string{"KB", "K"}},
}

func lookupByteUnit(unit string) (Bytes, bool) {
	if unit == "" {
		return B, true
	}
	for _, units := range [][]byteUnit{binaryUnits[:], decimalUnits[:]} {
		for _, u := range units {
			for _, name := range u.names {
				if strings.EqualFold(unit, name) {
					return u.scale, true
				}
			}
		}
	}
	return 0, false
}

// ParseBytes parses sizes like "512", "64 KiB" or "1.5M".
func ParseBytes(s string) (Bytes, error) {
	number, unit := splitUnit(s)
	scale, ok := lookupByteUnit(unit)
	if !ok {
		return 0, fmt.Errorf("malformed byte size: %q: unknown unit %q", s, unit)
	}
	f, ok := parseNumber(number)
	if !ok {
		return 0, fmt.Errorf("malformed byte size: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("malformed byte size: %q: negative value", s)
	}
	return Bytes(math.Floor(f * float64(scale))), nil
}

func (b Bytes) String() string {
	for _, u := range binaryUnits {
		if b >= u.scale {
			return ftoa(float64(b), float64(u.scale)) + " " + u.names[0]
		}
	}
	return "0 B"
}

func (b Bytes) Get() any { return uint64(b) }

func (b *Bytes) Set(s string) error {
	p, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = p
	return nil
}

func (b Bytes) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Bytes) UnmarshalText(t []byte) error { return b.Set(string(t)) }

func (b Bytes) MarshalJSON() ([]byte, error) { return json.Marshal(uint64(b)) }

// UnmarshalJSON accepts both byte counts and strings with units.
func (b *Bytes) UnmarshalJSON(j []byte) error {
	var s string
	if err := json.Unmarshal(j, &s); err == nil {
		return b.Set(s)
	}
	return json.Unmarshal(j, (*uint64)(b))
}

func (b Bytes) MarshalYAML() (any, error) { return b.String(), nil }

func (b *Bytes) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

var (
	_ fmt.Stringer = Bytes(0)
	_ flag.Getter  = (*Bytes)(nil)

	_ encoding.TextMarshaler   = Bytes(0)
	_ encoding.TextUnmarshaler = (*Bytes)(nil)
	_ json.Marshaler           = Bytes(0)
	_ json.Unmarshaler         = (*Bytes)(nil)
	_ yaml.Marshaler           = Bytes(0)
	_ yaml.Unmarshaler         = (*Bytes)(nil)
)
