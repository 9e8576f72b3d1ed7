// Package config loads the travioli configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/stealthrocket/travioli/internal/archive"
	"github.com/stealthrocket/travioli/internal/object"
	"github.com/stealthrocket/travioli/internal/print/human"
	"github.com/stealthrocket/travioli/internal/remote"
	"github.com/stealthrocket/travioli/internal/tracebuf"
	"github.com/stealthrocket/travioli/internal/tracefile"
	"github.com/stealthrocket/travioli/internal/tracer"
)

const (
	defaultConfigPath  = "~/.travioli/config.yaml"
	defaultArchivePath = "~/.travioli/archive"
	defaultListen      = "127.0.0.1:8080"
)

// ConfigPath is the path to the travioli configuration.
var ConfigPath human.Path = defaultConfigPath

// PathFromEnv returns the configuration path set by the TRAVIOLICONFIG
// environment variable, or the default path.
func PathFromEnv() human.Path {
	if path := os.Getenv("TRAVIOLICONFIG"); path != "" {
		return human.Path(path)
	}
	return defaultConfigPath
}

// LoadConfig opens and reads the configuration file.
func LoadConfig() (*Config, error) {
	r, _, err := OpenConfig()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadConfig(r)
}

// OpenConfig opens the configuration file. When the file does not exist, the
// returned reader yields the default configuration.
func OpenConfig() (io.ReadCloser, string, error) {
	path, err := ConfigPath.Resolve()
	if err != nil {
		return nil, path, err
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
		b, _ := yaml.Marshal(DefaultConfig())
		return io.NopCloser(bytes.NewReader(b)), path, nil
	}
	return f, path, nil
}

// ReadConfig reads and parses configuration. Unknown fields are errors.
//
// Fields set to null are unset, even when they have a default value.
func ReadConfig(r io.Reader) (*Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	if err := d.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	clearNulls(&doc, reflect.ValueOf(c).Elem())
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	buffer, hasBuffer := c.Buffer.Value()
	limit, hasLimit := c.Remote.MaxMessageSize.Value()
	if hasBuffer && hasLimit && buffer > limit {
		return fmt.Errorf("buffer size %s exceeds the remote max-message-size %s", buffer, limit)
	}
	return nil
}

// clearNulls unsets the nullable fields of v that node maps to null.
//
// The yaml decoder does not call unmarshalers on null nodes, which leaves
// the defaults in place.
func clearNulls(node *yaml.Node, v reflect.Value) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode || v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		field, ok := fieldByName(v, key.Value)
		if !ok {
			continue
		}
		switch value.Kind {
		case yaml.ScalarNode:
			if value.ShortTag() != "!!null" {
				continue
			}
			if n, ok := field.Addr().Interface().(nullable); ok {
				n.setNull()
			}
		case yaml.MappingNode:
			clearNulls(value, field)
		}
	}
}

func fieldByName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	c := new(Config)
	c.Output = NullableValue[human.Path](tracefile.DefaultDir)
	c.Buffer = NullableValue[human.Bytes](tracebuf.DefaultSize)
	c.Server.Listen = defaultListen
	c.Archive.Location = NullableValue[human.Path](defaultArchivePath)
	c.Archive.Compression = archive.Zstd
	return c
}

// Config is travioli configuration.
type Config struct {
	Output Nullable[human.Path]  `json:"output" yaml:"output"`
	Buffer Nullable[human.Bytes] `json:"buffer" yaml:"buffer"`
	Remote struct {
		URL            Nullable[string]      `json:"url"              yaml:"url"`
		MaxMessageSize Nullable[human.Bytes] `json:"max-message-size" yaml:"max-message-size"`
	} `json:"remote" yaml:"remote"`
	Server struct {
		Listen  string               `json:"listen"   yaml:"listen"`
		AckRate Nullable[human.Rate] `json:"ack-rate" yaml:"ack-rate"`
	} `json:"server" yaml:"server"`
	Archive struct {
		Location    Nullable[human.Path] `json:"location"    yaml:"location"`
		Compression archive.Compression  `json:"compression" yaml:"compression"`
	} `json:"archive" yaml:"archive"`
}

// OutputPath returns the resolved trace directory.
func (c *Config) OutputPath() (string, error) {
	return c.Output.Or(tracefile.DefaultDir).Resolve()
}

// TracerConfig returns the tracer configuration. The remote sink is enabled
// when a remote URL is configured. Without a max-message-size the tracer
// picks a limit large enough for the buffer.
func (c *Config) TracerConfig(logger *slog.Logger) (tracer.Config, error) {
	output, err := c.OutputPath()
	if err != nil {
		return tracer.Config{}, err
	}
	config := tracer.Config{
		Output:     output,
		BufferSize: int(c.Buffer.Or(tracebuf.DefaultSize)),
		Logger:     logger,
	}
	if url, ok := c.Remote.URL.Value(); ok {
		config.Remote = &remote.Config{
			URL:    url,
			Logger: logger,
		}
		if limit, ok := c.Remote.MaxMessageSize.Value(); ok {
			config.Remote.MaxMessageSize = int(limit)
		}
	}
	return config, nil
}

// NewServer returns a remote consumer writing sessions under output, with
// the limits of the server configuration. Without a max-message-size the
// server accepts chunks as large as the configured buffer.
func (c *Config) NewServer(output string, logger *slog.Logger) *remote.Server {
	limit := max(remote.DefaultMaxMessageSize, c.Buffer.Or(tracebuf.DefaultSize))
	server := &remote.Server{
		Output:         output,
		MaxMessageSize: int(c.Remote.MaxMessageSize.Or(limit)),
		Logger:         logger,
	}
	if r, ok := c.Server.AckRate.Value(); ok && r > 0 {
		server.AckRate = rate.Limit(r)
	}
	return server
}

// CreateArchive opens the session archive, creating its directory if needed.
// The tags are attached to the objects of sessions stored in the archive.
func (c *Config) CreateArchive(tags ...object.Tag) (*archive.Archive, error) {
	location, ok := c.Archive.Location.Value()
	if ok {
		path, err := location.Resolve()
		if err != nil {
			return nil, err
		}
		if err := createDirectory(path); err != nil {
			return nil, err
		}
	}
	return c.OpenArchive(tags...)
}

// OpenArchive opens the session archive. A null location opens an empty,
// read-only archive.
func (c *Config) OpenArchive(tags ...object.Tag) (*archive.Archive, error) {
	store := object.EmptyStore()
	location, ok := c.Archive.Location.Value()
	if ok {
		path, err := location.Resolve()
		if err != nil {
			return nil, err
		}
		dir, err := object.DirStore(path)
		if err != nil {
			return nil, err
		}
		store = dir
	}
	compression := c.Archive.Compression
	if compression == "" {
		compression = archive.Zstd
	}
	return archive.New(store, compression, tags...), nil
}

func createDirectory(path string) error {
	if err := os.MkdirAll(path, 0777); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}
