// Package tracefile implements the format of trace directories.
//
// A trace directory holds three files:
//
//	trace.csv     one record per line, comma separated fields
//	strings.json  the string table, a JSON array in interning order
//	smap.json     the host's source map
//
// Each record starts with a single letter kind tag followed by a fixed number
// of fields that depends on the kind:
//
//	R,script,site,frame,name,value,type
//	W,script,site,frame,name,value,type
//	D,script,site,frame,name,value,type
//	G,script,site,base,owner,key,value,type
//	P,script,site,base,owner,key,value,type
//	C,callerScript,callerSite,script,site,callee,frame
//	E,script,site,value,type
//
// Identities (frame, base, owner) are positive integers or zero for none.
// Names and keys are string table indexes. A value is a pair of a code and a
// type tag, where the code is an identity for objects, a string table index
// for strings, 0 for undefined, and the textual form of other primitives.
package tracefile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stealthrocket/travioli/internal/shadow"
	"github.com/stealthrocket/travioli/internal/strtab"
)

const (
	DefaultDir    = ".travioli"
	TraceFile     = "trace.csv"
	StringsFile   = "strings.json"
	SourceMapFile = "smap.json"
)

// ErrMalformed is returned when a line does not match the documented layout
// of its record kind.
var ErrMalformed = errors.New("malformed trace record")

// Kind is the tag starting each record.
type Kind byte

const (
	Read     Kind = 'R'
	Write    Kind = 'W'
	Declare  Kind = 'D'
	GetField Kind = 'G'
	PutField Kind = 'P'
	Call     Kind = 'C'
	Exit     Kind = 'E'
)

// NumFields returns the number of comma separated fields of records of kind k,
// including the tag, or zero if k is not a known kind.
func (k Kind) NumFields() int {
	switch k {
	case Read, Write, Declare, Call:
		return 7
	case GetField, PutField:
		return 8
	case Exit:
		return 5
	default:
		return 0
	}
}

func (k Kind) String() string { return string(k) }

func (k Kind) MarshalText() ([]byte, error) { return []byte{byte(k)}, nil }

func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) != 1 || Kind(b[0]).NumFields() == 0 {
		return fmt.Errorf("%w: unknown record kind %q", ErrMalformed, b)
	}
	*k = Kind(b[0])
	return nil
}

// TypeTag classifies encoded values.
type TypeTag byte

const (
	Object    TypeTag = 'O'
	String    TypeTag = 'S'
	Undefined TypeTag = 'U'
	Primitive TypeTag = 'P'
)

func (t TypeTag) String() string { return string(t) }

func (t TypeTag) MarshalText() ([]byte, error) { return []byte{byte(t)}, nil }

func (t *TypeTag) UnmarshalText(b []byte) error {
	if len(b) == 1 {
		switch tag := TypeTag(b[0]); tag {
		case Object, String, Undefined, Primitive:
			*t = tag
			return nil
		}
	}
	return fmt.Errorf("%w: unknown type tag %q", ErrMalformed, b)
}

// Value is the encoded form of a runtime value.
type Value struct {
	Code string  `json:"code" yaml:"code"`
	Type TypeTag `json:"type,omitempty" yaml:"type,omitempty"`
}

// ObjectValue encodes a reference to an object.
func ObjectValue(id shadow.Identity) Value {
	return Value{Code: strconv.FormatInt(int64(id), 10), Type: Object}
}

// StringValue encodes a reference to an interned string.
func StringValue(i strtab.Index) Value {
	return Value{Code: strconv.Itoa(int(i)), Type: String}
}

// UndefinedValue is the encoded undefined value.
var UndefinedValue = Value{Code: "0", Type: Undefined}

// PrimitiveValue encodes a primitive by its textual form.
func PrimitiveValue(text string) Value {
	return Value{Code: text, Type: Primitive}
}

// Identity returns the object identity that v refers to.
func (v Value) Identity() (shadow.Identity, bool) {
	if v.Type != Object {
		return 0, false
	}
	id, err := strconv.ParseInt(v.Code, 10, 64)
	return shadow.Identity(id), err == nil
}

// Index returns the string table index that v refers to.
func (v Value) Index() (strtab.Index, bool) {
	if v.Type != String {
		return 0, false
	}
	i, err := strconv.Atoi(v.Code)
	return strtab.Index(i), err == nil
}

// Record is a single trace record.
//
// The meaning of Frame depends on the kind: the frame owning the binding for
// R, W and D records, the base object for G and P records, and the newly
// created frame for C records. For C records Script and Site locate the call
// site, CalleeScript and CalleeSite locate the function entered, and only the
// code of Value is written.
type Record struct {
	Kind         Kind            `json:"kind" yaml:"kind"`
	Script       int             `json:"script" yaml:"script"`
	Site         int             `json:"site" yaml:"site"`
	CalleeScript int             `json:"calleeScript,omitempty" yaml:"calleeScript,omitempty"`
	CalleeSite   int             `json:"calleeSite,omitempty" yaml:"calleeSite,omitempty"`
	Frame        shadow.Identity `json:"frame,omitempty" yaml:"frame,omitempty"`
	Owner        shadow.Identity `json:"owner,omitempty" yaml:"owner,omitempty"`
	Name         strtab.Index    `json:"name,omitempty" yaml:"name,omitempty"`
	Value        Value           `json:"value" yaml:"value"`
}

// AppendRecord appends the line encoding r, including the trailing newline,
// to b.
func AppendRecord(b []byte, r *Record) []byte {
	b = append(b, byte(r.Kind), ',')
	b = strconv.AppendInt(b, int64(r.Script), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.Site), 10)
	b = append(b, ',')

	switch r.Kind {
	case Call:
		b = strconv.AppendInt(b, int64(r.CalleeScript), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.CalleeSite), 10)
		b = append(b, ',')
		b = append(b, r.Value.Code...)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.Frame), 10)
		return append(b, '\n')
	case GetField, PutField:
		b = strconv.AppendInt(b, int64(r.Frame), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.Owner), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.Name), 10)
		b = append(b, ',')
	case Exit:
	default:
		b = strconv.AppendInt(b, int64(r.Frame), 10)
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.Name), 10)
		b = append(b, ',')
	}

	b = append(b, r.Value.Code...)
	b = append(b, ',', byte(r.Value.Type), '\n')
	return b
}

// String returns the line encoding r, without the trailing newline.
func (r Record) String() string {
	b := AppendRecord(make([]byte, 0, 64), &r)
	return string(b[:len(b)-1])
}

// Parse decodes a single line of a trace file. A trailing newline is allowed.
// Lines with an unknown kind or a field count other than the one documented
// for their kind are rejected with ErrMalformed.
func Parse(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")

	var r Record
	if err := r.Kind.UnmarshalText([]byte(fields[0])); err != nil {
		return r, err
	}
	if n := r.Kind.NumFields(); len(fields) != n {
		return r, fmt.Errorf("%w: %s record has %d fields, expected %d", ErrMalformed, r.Kind, len(fields), n)
	}

	p := parser{fields: fields[1:]}
	r.Script = int(p.integer())
	r.Site = int(p.integer())

	switch r.Kind {
	case Call:
		r.CalleeScript = int(p.integer())
		r.CalleeSite = int(p.integer())
		r.Value.Code = p.next()
		r.Frame = shadow.Identity(p.integer())
	case GetField, PutField:
		r.Frame = shadow.Identity(p.integer())
		r.Owner = shadow.Identity(p.integer())
		r.Name = strtab.Index(int(p.integer()))
		r.Value = p.value()
	case Exit:
		r.Value = p.value()
	default:
		r.Frame = shadow.Identity(p.integer())
		r.Name = strtab.Index(int(p.integer()))
		r.Value = p.value()
	}

	if p.err != nil {
		return r, fmt.Errorf("%w: %s record: %v", ErrMalformed, r.Kind, p.err)
	}
	return r, nil
}

type parser struct {
	fields []string
	err    error
}

func (p *parser) next() string {
	s := p.fields[0]
	p.fields = p.fields[1:]
	return s
}

func (p *parser) integer() int64 {
	s := p.next()
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return i
}

func (p *parser) value() Value {
	v := Value{Code: p.next()}
	if err := v.Type.UnmarshalText([]byte(p.next())); err != nil && p.err == nil {
		p.err = err
	}
	return v
}
