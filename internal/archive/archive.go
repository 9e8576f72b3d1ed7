// Package archive stores finished trace directories in an object store.
//
// Each archived session is made of a manifest object, sessions/<id>, holding
// the JSON description of the session, and one object per file of the trace
// directory under traces/<id>/, compressed with the algorithm recorded in
// the manifest.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stealthrocket/travioli/internal/object"
	"github.com/stealthrocket/travioli/internal/stream"
	"github.com/stealthrocket/travioli/internal/tracefile"
)

const (
	sessionsPrefix = "sessions/"
	tracesPrefix   = "traces/"

	// Tag names attached to archived objects.
	TagCompression = "travioli.compression"
	TagSize        = "travioli.size"
	TagSource      = "travioli.source"
)

// ErrNoTrace is returned when archiving a directory with no trace file.
var ErrNoTrace = errors.New("directory has no trace file")

// Files lists the files of a trace directory, in archival order.
var Files = []string{
	tracefile.TraceFile,
	tracefile.StringsFile,
	tracefile.SourceMapFile,
}

// File describes one archived file of a session.
type File struct {
	Name string `json:"name" yaml:"name"`
	// Size of the file content.
	Size int64 `json:"size" yaml:"size"`
	// Size of the object holding the compressed content.
	StoredSize int64 `json:"storedSize" yaml:"storedSize"`
}

// Session describes an archived trace directory.
type Session struct {
	ID          uuid.UUID   `json:"id"          yaml:"id"`
	Source      string      `json:"source"      yaml:"source"`
	Compression Compression `json:"compression" yaml:"compression"`
	CreatedAt   time.Time   `json:"createdAt"   yaml:"createdAt"`
	Files       []File      `json:"files"       yaml:"files"`
}

// Size returns the total size of the session files.
func (s *Session) Size() (size int64) {
	for _, f := range s.Files {
		size += f.Size
	}
	return size
}

// StoredSize returns the total size of the objects holding the session files.
func (s *Session) StoredSize() (size int64) {
	for _, f := range s.Files {
		size += f.StoredSize
	}
	return size
}

// TimeRange selects sessions by creation time.
type TimeRange struct {
	Start, End time.Time
}

// Between returns the range from then to now.
func Between(then, now time.Time) TimeRange {
	return TimeRange{Start: then, End: now}
}

// Since returns the range from then to the current time.
func Since(then time.Time) TimeRange {
	return Between(then, time.Now().In(then.Location()))
}

// Archive stores trace sessions in an object store.
type Archive struct {
	objects     object.Store
	compression Compression
	tags        []object.Tag
	logger      *slog.Logger
}

// New constructs an archive storing objects in objects, compressing new
// sessions with compression. The tags are added to every object created.
func New(objects object.Store, compression Compression, tags ...object.Tag) *Archive {
	return &Archive{
		objects:     objects,
		compression: compression,
		tags:        slices.Clone(tags),
		logger:      slog.Default(),
	}
}

// WithLogger returns a copy of the archive logging to logger.
func (a *Archive) WithLogger(logger *slog.Logger) *Archive {
	c := *a
	c.logger = logger
	return &c
}

// Compression returns the algorithm used to compress new sessions.
func (a *Archive) Compression() Compression { return a.compression }

// Store archives the trace directory dir under the given session id. A nil id
// is replaced by a random one.
//
// The trace file must exist; the string table and source map are archived if
// present.
func (a *Archive) Store(ctx context.Context, dir string, id uuid.UUID) (*Session, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	session := &Session{
		ID:          id,
		Source:      dir,
		Compression: a.compression,
		CreatedAt:   time.Now().UTC(),
	}

	var buffer []byte
	for _, name := range Files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if name == tracefile.TraceFile {
					return nil, fmt.Errorf("archiving %s: %w", dir, ErrNoTrace)
				}
				continue
			}
			return nil, err
		}

		buffer = compress(buffer, data, a.compression)
		tags := append(slices.Clip(a.tags),
			object.Tag{Name: TagCompression, Value: a.compression.String()},
			object.Tag{Name: TagSize, Value: strconv.Itoa(len(data))},
		)
		if err := a.objects.CreateObject(ctx, a.fileKey(id, name), bytes.NewReader(buffer), tags...); err != nil {
			return nil, errorStore(id, name, err)
		}
		session.Files = append(session.Files, File{
			Name:       name,
			Size:       int64(len(data)),
			StoredSize: int64(len(buffer)),
		})
	}

	manifest, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	tags := append(slices.Clip(a.tags),
		object.Tag{Name: TagCompression, Value: a.compression.String()},
		object.Tag{Name: TagSource, Value: dir},
	)
	if err := a.objects.CreateObject(ctx, a.sessionKey(id), bytes.NewReader(manifest), tags...); err != nil {
		return nil, errorStore(id, "manifest", err)
	}

	a.logger.Info("trace session archived",
		"session", id,
		"source", dir,
		"size", session.Size(),
		"stored", session.StoredSize(),
		"compression", a.compression)
	return session, nil
}

// Lookup returns the description of an archived session.
func (a *Archive) Lookup(ctx context.Context, id uuid.UUID) (*Session, error) {
	r, err := a.objects.ReadObject(ctx, a.sessionKey(id))
	if err != nil {
		return nil, errorLookup(id, err)
	}
	defer r.Close()
	session := new(Session)
	if err := json.NewDecoder(r).Decode(session); err != nil {
		return nil, errorLookup(id, err)
	}
	return session, nil
}

// Open returns the decompressed content of a file of an archived session.
func (a *Archive) Open(ctx context.Context, id uuid.UUID, name string) (io.ReadCloser, error) {
	key := a.fileKey(id, name)
	info, err := a.objects.StatObject(ctx, key)
	if err != nil {
		return nil, errorLookup(id, err)
	}
	compression := Uncompressed
	if value, ok := info.Lookup(TagCompression); ok {
		if compression, err = ParseCompression(value); err != nil {
			return nil, errorLookup(id, err)
		}
	}

	r, err := a.objects.ReadObject(ctx, key)
	if err != nil {
		return nil, errorLookup(id, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errorLookup(id, err)
	}
	var size int
	if value, ok := info.Lookup(TagSize); ok {
		size, _ = strconv.Atoi(value)
	}
	data, err := decompress(make([]byte, 0, size), b, compression)
	if err != nil {
		return nil, errorLookup(id, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Extract restores the files of an archived session into dir.
func (a *Archive) Extract(ctx context.Context, id uuid.UUID, dir string) (*Session, error) {
	session, err := a.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, file := range session.Files {
		r, err := a.Open(ctx, id, file.Name)
		if err != nil {
			return nil, err
		}
		err = tracefile.WriteFile(filepath.Join(dir, file.Name), readerTo{r})
		r.Close()
		if err != nil {
			return nil, err
		}
	}
	return session, nil
}

type readerTo struct{ io.Reader }

func (r readerTo) WriteTo(w io.Writer) (int64, error) { return io.Copy(w, r.Reader) }

// Sessions lists the sessions created in the time range. A zero end time
// leaves the range open.
func (a *Archive) Sessions(ctx context.Context, timeRange TimeRange, filters ...object.Filter) stream.ReadCloser[*Session] {
	filters = append([]object.Filter{object.AFTER(timeRange.Start.Add(-1))}, filters...)
	if !timeRange.End.IsZero() {
		filters = append(filters, object.BEFORE(timeRange.End))
	}

	objects := a.objects.ListObjects(ctx, sessionsPrefix, filters...)
	sessions := stream.ConvertReader[*Session](objects, func(info object.Info) (*Session, error) {
		id, err := uuid.Parse(path.Base(info.Name))
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		return a.Lookup(ctx, id)
	})
	return stream.NewReadCloser(sessions, objects)
}

// Delete removes an archived session.
func (a *Archive) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := a.Lookup(ctx, id)
	if err != nil {
		return err
	}
	// The manifest goes first so a partially deleted session is never listed.
	if err := a.objects.DeleteObject(ctx, a.sessionKey(id)); err != nil {
		return err
	}
	for _, file := range session.Files {
		if err := a.objects.DeleteObject(ctx, a.fileKey(id, file.Name)); err != nil {
			return err
		}
	}
	a.logger.Info("trace session deleted", "session", id)
	return nil
}

func (a *Archive) sessionKey(id uuid.UUID) string {
	return sessionsPrefix + id.String()
}

func (a *Archive) fileKey(id uuid.UUID, name string) string {
	return tracesPrefix + id.String() + "/" + name
}

func errorStore(id uuid.UUID, name string, err error) error {
	return fmt.Errorf("archive session: %s: %s: %w", id, name, err)
}

func errorLookup(id uuid.UUID, err error) error {
	return fmt.Errorf("lookup session: %s: %w", id, err)
}
