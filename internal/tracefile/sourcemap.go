package tracefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

const fileNameKey = "originalCodeFileName"

// Span locates a site in its source file.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartColumn, s.EndLine, s.EndColumn)
}

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{s.StartLine, s.StartColumn, s.EndLine, s.EndColumn})
}

func (s *Span) UnmarshalJSON(b []byte) error {
	var v []int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if len(v) < 2 {
		return fmt.Errorf("source span has %d elements, expected at least 2", len(v))
	}
	*s = Span{StartLine: v[0], StartColumn: v[1]}
	if len(v) >= 4 {
		s.EndLine, s.EndColumn = v[2], v[3]
	}
	return nil
}

// Script is the source map entry of one script.
//
// Keys of the host's entry that are neither the file name nor a site id are
// preserved in Extra and written back unchanged. Sites read from JSON keep
// their original encoding unless their span is modified.
type Script struct {
	FileName string
	Sites    map[int]Span
	Extra    map[string]json.RawMessage

	raw        map[int]rawSpan
	noFileName bool
}

type rawSpan struct {
	span Span
	data json.RawMessage
}

func (s *Script) MarshalJSON() ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteByte('{')

	comma := false
	if s.FileName != "" || !s.noFileName {
		name, _ := json.Marshal(s.FileName)
		b.WriteString(strconv.Quote(fileNameKey))
		b.WriteByte(':')
		b.Write(name)
		comma = true
	}

	extra := make([]string, 0, len(s.Extra))
	for key := range s.Extra {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		k, _ := json.Marshal(key)
		if comma {
			b.WriteByte(',')
		}
		comma = true
		b.Write(k)
		b.WriteByte(':')
		b.Write(s.Extra[key])
	}

	sites := make([]int, 0, len(s.Sites))
	for site := range s.Sites {
		sites = append(sites, site)
	}
	sort.Ints(sites)
	for _, site := range sites {
		span, err := s.encodeSite(site)
		if err != nil {
			return nil, err
		}
		if comma {
			b.WriteByte(',')
		}
		comma = true
		b.WriteByte('"')
		b.WriteString(strconv.Itoa(site))
		b.WriteString(`":`)
		b.Write(span)
	}

	b.WriteByte('}')
	return b.Bytes(), nil
}

func (s *Script) encodeSite(site int) ([]byte, error) {
	span := s.Sites[site]
	if r, ok := s.raw[site]; ok && r.span == span {
		return r.data, nil
	}
	return span.MarshalJSON()
}

func (s *Script) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*s = Script{Sites: make(map[int]Span), raw: make(map[int]rawSpan)}
	if _, ok := fields[fileNameKey]; !ok {
		s.noFileName = true
	}
	for key, raw := range fields {
		if key == fileNameKey {
			if err := json.Unmarshal(raw, &s.FileName); err != nil {
				return fmt.Errorf("source map file name: %w", err)
			}
			continue
		}
		site, err := strconv.Atoi(key)
		if err == nil {
			var span Span
			if err := span.UnmarshalJSON(raw); err == nil {
				s.Sites[site] = span
				s.raw[site] = rawSpan{span: span, data: raw}
				continue
			}
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[key] = raw
	}
	return nil
}

// SourceMap maps script ids to their source map entry. It is provided by the
// host and written next to the trace at teardown.
type SourceMap map[int]*Script

// Location returns "file:line" for the given site, or the empty string if the
// site is unknown.
func (m SourceMap) Location(script, site int) string {
	s, ok := m[script]
	if !ok {
		return ""
	}
	span, ok := s.Sites[site]
	if !ok {
		return ""
	}
	return s.FileName + ":" + strconv.Itoa(span.StartLine)
}

// WriteTo writes the source map as JSON followed by a newline.
func (m SourceMap) WriteTo(w io.Writer) (int64, error) {
	if m == nil {
		m = SourceMap{}
	}
	b, err := json.Marshal(map[int]*Script(m))
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

// ReadSourceMap decodes a source map written by WriteTo.
func ReadSourceMap(r io.Reader) (SourceMap, error) {
	m := make(SourceMap)
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("reading source map: %w", err)
	}
	return m, nil
}

// WriteFile writes the output of w to the named file, replacing any previous
// content.
func WriteFile(path string, w io.WriterTo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
