// Package object is the storage layer of the trace archive.
//
// Objects are immutable blobs addressed by slash separated names and annotated
// with a set of tags, which can be used to filter listings.
package object

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/stealthrocket/travioli/internal/stream"
)

var (
	// ErrNotExist is returned by methods of Store called on an object which
	// does not exist.
	ErrNotExist = fs.ErrNotExist

	// ErrReadOnly is returned when attempting to create an object in a
	// read-only store.
	ErrReadOnly = errors.New("read only object store")
)

// Store is an interface abstracting an object storage layer.
//
// Store instances must be safe to use concurrently from multiple goroutines.
type Store interface {
	// Creates an object with the given name and tags, initializing its
	// content to the data read from r.
	//
	// Creation is atomic: the object is not visible until all of its content
	// and tags were written, and the store is left unchanged on error.
	CreateObject(ctx context.Context, name string, r io.Reader, tags ...Tag) error

	// Reads an existing object.
	ReadObject(ctx context.Context, name string) (io.ReadCloser, error)

	// Retrieves the metadata of an object.
	StatObject(ctx context.Context, name string) (Info, error)

	// Lists the objects directly under prefix which match all the filters.
	ListObjects(ctx context.Context, prefix string, filters ...Filter) stream.ReadCloser[Info]

	// Deletes an object. Deleting an object which does not exist is not an
	// error.
	DeleteObject(ctx context.Context, name string) error
}

// Tag is a name/value pair attached to an object.
type Tag struct {
	Name  string `json:"name"  yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

func (t Tag) String() string { return t.Name + "=" + t.Value }

// ParseTag parses a tag in the name=value form.
func ParseTag(s string) (Tag, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Tag{}, fmt.Errorf("malformed tag: %q (expected name=value)", s)
	}
	return Tag{Name: name, Value: strings.TrimSpace(value)}, nil
}

func validTag(t Tag) bool {
	return t.Name != "" &&
		!strings.ContainsAny(t.Name, "=\n") &&
		!strings.Contains(t.Value, "\n")
}

// Info is the metadata of an object.
type Info struct {
	Name      string    `json:"name"      yaml:"name"`
	Size      int64     `json:"size"      yaml:"size"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Tags      []Tag     `json:"tags"      yaml:"tags"`
}

// Lookup returns the value of the named tag.
func (info *Info) Lookup(name string) (string, bool) {
	for _, tag := range info.Tags {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

func (info *Info) After(t time.Time) bool { return info.CreatedAt.After(t) }

func (info *Info) Before(t time.Time) bool { return info.CreatedAt.Before(t) }

// Match reports whether any of the tags named name carries value.
func (info *Info) Match(name, value string) bool {
	for _, tag := range info.Tags {
		if tag.Name == name && tag.Value == value {
			return true
		}
	}
	return false
}

// EmptyStore returns an empty, read-only object store.
func EmptyStore() Store { return emptyStore{} }

type emptyStore struct{}

func (emptyStore) CreateObject(context.Context, string, io.Reader, ...Tag) error {
	return ErrReadOnly
}

func (emptyStore) ReadObject(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrNotExist
}

func (emptyStore) StatObject(context.Context, string) (Info, error) {
	return Info{}, ErrNotExist
}

func (emptyStore) ListObjects(context.Context, string, ...Filter) stream.ReadCloser[Info] {
	return emptyInfoReader{}
}

func (emptyStore) DeleteObject(context.Context, string) error {
	return nil
}

// DirStore constructs an object store backed by the directory at path.
//
// The path is made absolute so the store does not depend on the current
// working directory. The directory is created when the first object is.
//
// Tags are kept in a hidden file next to each object.
func DirStore(path string) (Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return dirStore(absPath), nil
}

type dirStore string

func tagsPath(filePath string) string {
	dir, file := filepath.Split(filePath)
	return filepath.Join(dir, "."+file+".tags")
}

func (store dirStore) CreateObject(ctx context.Context, name string, r io.Reader, tags ...Tag) error {
	filePath, err := store.joinPath(name)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		if !validTag(tag) {
			return fmt.Errorf("invalid object tag: %q", tag.String())
		}
	}

	dirPath, fileName := filepath.Split(filePath)
	if err := os.MkdirAll(dirPath, 0777); err != nil {
		return err
	}

	tmpData, err := writeTemp(dirPath, fileName, r)
	if err != nil {
		return err
	}
	defer os.Remove(tmpData)

	var tagList strings.Builder
	for _, tag := range tags {
		tagList.WriteString(tag.String())
		tagList.WriteByte('\n')
	}
	tmpTags, err := writeTemp(dirPath, fileName, strings.NewReader(tagList.String()))
	if err != nil {
		return err
	}
	defer os.Remove(tmpTags)

	if err := os.Rename(tmpTags, tagsPath(filePath)); err != nil {
		return err
	}
	if err := os.Rename(tmpData, filePath); err != nil {
		os.Remove(tagsPath(filePath))
		return err
	}
	return nil
}

func writeTemp(dir, name string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (store dirStore) ReadObject(ctx context.Context, name string) (io.ReadCloser, error) {
	filePath, err := store.joinPath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(filePath)
}

func (store dirStore) StatObject(ctx context.Context, name string) (Info, error) {
	filePath, err := store.joinPath(name)
	if err != nil {
		return Info{}, err
	}
	stat, err := os.Stat(filePath)
	if err != nil {
		return Info{}, err
	}
	if stat.IsDir() {
		return Info{}, fmt.Errorf("%s: %w", name, ErrNotExist)
	}
	tags, err := readTags(filePath)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:      name,
		Size:      stat.Size(),
		CreatedAt: stat.ModTime(),
		Tags:      tags,
	}, nil
}

func readTags(filePath string) ([]Tag, error) {
	f, err := os.Open(tagsPath(filePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var tags []Tag
	s := bufio.NewScanner(f)
	for s.Scan() {
		if s.Text() == "" {
			continue
		}
		tag, err := ParseTag(s.Text())
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, s.Err()
}

func (store dirStore) ListObjects(ctx context.Context, prefix string, filters ...Filter) stream.ReadCloser[Info] {
	if prefix != "." && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	dirPath, err := store.joinPath(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return &errorInfoReader{err: err}
	}
	dir, err := os.Open(dirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyInfoReader{}
		}
		return &errorInfoReader{err: err}
	}
	if prefix == "./" {
		prefix = ""
	}
	return &dirReader{
		dir:     dir,
		path:    prefix,
		filters: slices.Clone(filters),
	}
}

func (store dirStore) DeleteObject(ctx context.Context, name string) error {
	filePath, err := store.joinPath(name)
	if err != nil {
		return err
	}
	for _, p := range []string{filePath, tagsPath(filePath)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (store dirStore) joinPath(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid object name: %q", name)
	}
	return filepath.Join(string(store), filepath.FromSlash(name)), nil
}

type dirReader struct {
	dir     *os.File
	path    string
	filters []Filter
}

func (r *dirReader) Close() error {
	return r.dir.Close()
}

func (r *dirReader) Read(items []Info) (n int, err error) {
	for n < len(items) {
		dirents, err := r.dir.ReadDir(len(items) - n)

		for _, dirent := range dirents {
			name := dirent.Name()
			if dirent.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			info, err := dirent.Info()
			if err != nil {
				return n, err
			}
			tags, err := readTags(filepath.Join(r.dir.Name(), name))
			if err != nil {
				return n, err
			}
			item := Info{
				Name:      path.Join(r.path, name),
				Size:      info.Size(),
				CreatedAt: info.ModTime(),
				Tags:      tags,
			}
			if MatchAll(&item, r.filters...) {
				items[n] = item
				n++
			}
		}

		if err != nil {
			return n, err
		}
	}
	return n, nil
}

type emptyInfoReader struct{}

func (emptyInfoReader) Close() error             { return nil }
func (emptyInfoReader) Read([]Info) (int, error) { return 0, io.EOF }

type errorInfoReader struct{ err error }

func (r *errorInfoReader) Close() error             { return nil }
func (r *errorInfoReader) Read([]Info) (int, error) { return 0, r.err }
