package archive

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression is the algorithm used to compress archived files.
type Compression string

const (
	Uncompressed Compression = "none"
	Snappy       Compression = "snappy"
	Zstd         Compression = "zstd"
)

// ParseCompression parses the name of a compression algorithm.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case Uncompressed, Snappy, Zstd:
		return c, nil
	}
	return "", fmt.Errorf("unsupported compression type: %q (not one of none, snappy, zstd)", s)
}

func (c Compression) String() string { return string(c) }

func (c *Compression) Set(s string) error {
	v, err := ParseCompression(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Compression) MarshalText() ([]byte, error) { return []byte(c), nil }

func (c *Compression) UnmarshalText(b []byte) error { return c.Set(string(b)) }

var (
	zstdEncoderPool objectPool[*zstd.Encoder]
	zstdDecoderPool objectPool[*zstd.Decoder]
)

type objectPool[T any] struct {
	pool sync.Pool
}

func (p *objectPool[T]) get(newObject func() T) T {
	v, ok := p.pool.Get().(T)
	if ok {
		return v
	}
	return newObject()
}

func (p *objectPool[T]) put(obj T) {
	p.pool.Put(obj)
}

func compress(dst, src []byte, compression Compression) []byte {
	switch compression {
	case Snappy:
		return snappy.Encode(dst[:cap(dst)], src)
	case Zstd:
		enc := zstdEncoderPool.get(func() *zstd.Encoder {
			e, _ := zstd.NewWriter(nil,
				zstd.WithEncoderConcurrency(1),
				zstd.WithEncoderLevel(zstd.SpeedDefault),
			)
			return e
		})
		defer zstdEncoderPool.put(enc)
		return enc.EncodeAll(src, dst[:0])
	default:
		return append(dst[:0], src...)
	}
}

func decompress(dst, src []byte, compression Compression) ([]byte, error) {
	switch compression {
	case Snappy:
		return snappy.Decode(dst[:cap(dst)], src)
	case Zstd:
		dec := zstdDecoderPool.get(func() *zstd.Decoder {
			d, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			return d
		})
		defer zstdDecoderPool.put(dec)
		return dec.DecodeAll(src, dst[:0])
	case Uncompressed:
		return append(dst[:0], src...), nil
	default:
		return nil, fmt.Errorf("unknown compression format: %q", compression)
	}
}
