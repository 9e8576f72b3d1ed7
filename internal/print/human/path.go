package human

import (
	"encoding"
	"flag"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Path represents a path on the file system.
//
// The type keeps the path as written by the user and interprets the special
// prefix "~/" as the home directory of the user that the program is running
// as when the path is resolved.
type Path string

func (p Path) String() string {
	return string(p)
}

// Resolve returns the path with the home directory prefix expanded.
func (p Path) Resolve() (string, error) {
	s := string(p)
	if s != "~" && !strings.HasPrefix(s, "~"+string(os.PathSeparator)) {
		return s, nil
	}
	home, ok := os.LookupEnv("HOME")
	if !ok {
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		home = u.HomeDir
	}
	return filepath.Join(home, strings.TrimPrefix(s, "~")), nil
}

// Join returns the path composed of p and the given elements.
func (p Path) Join(elem ...string) Path {
	return Path(filepath.Join(append([]string{string(p)}, elem...)...))
}

func (p Path) Get() any {
	return string(p)
}

func (p *Path) Set(s string) error {
	*p = Path(s)
	return nil
}

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

func (p *Path) UnmarshalText(b []byte) error {
	return p.Set(string(b))
}

var (
	_ encoding.TextMarshaler   = Path("")
	_ encoding.TextUnmarshaler = (*Path)(nil)
	_ flag.Getter              = (*Path)(nil)
)
