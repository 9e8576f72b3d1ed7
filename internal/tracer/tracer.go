// Package tracer encodes the events of an instrumented program into trace
// records.
//
// The instrumentation host drives a Tracer through the Analysis interface,
// calling one method per event in program order from a single goroutine.
// Identities of objects and frames are resolved through the host's shadow
// memory; strings are interned into the tracer's string table. Records are
// staged in a bounded buffer and delivered to a sink, either a local trace
// file or a remote consumer.
package tracer

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/stealthrocket/travioli/internal/remote"
	"github.com/stealthrocket/travioli/internal/shadow"
	"github.com/stealthrocket/travioli/internal/tracebuf"
	"github.com/stealthrocket/travioli/internal/tracefile"
	"github.com/stealthrocket/travioli/internal/value"
)

// Analysis is the callback surface exposed to the instrumentation host.
//
// Sites are identified by the host's in-script position ids; the script is
// obtained from the Scripts collaborator at the time of the call.
type Analysis interface {
	// InvokeFunPre is called before a function is invoked.
	InvokeFunPre(site int, f, base value.Value, args []value.Value, isConstructor, isMethod bool)
	// InvokeFun is called after a function returned result.
	InvokeFun(site int, f, base value.Value, args []value.Value, result value.Value, isConstructor, isMethod bool)
	// GetFieldPre is called before the property key of base is read.
	GetFieldPre(site int, base, key value.Value)
	// GetField is called after the property key of base was read as val.
	GetField(site int, base, key, val value.Value)
	// PutFieldPre is called before val is assigned to the property key of
	// base.
	PutFieldPre(site int, base, key, val value.Value)
	// Read is called when the variable name is read.
	Read(site int, name string, val value.Value)
	// Write is called when val is assigned to the variable name.
	Write(site int, name string, val value.Value)
	// Literal is called when an object, array or function literal is
	// created.
	Literal(site int, lit value.Value)
	// Declare is called when a variable, parameter or function is bound in
	// the current frame. argumentIndex is the position of a formal
	// parameter, or negative for the arguments collection.
	Declare(site int, name string, val value.Value, argumentIndex int, isArgument, isCatchParam bool)
	// FunctionEnter is called when control enters the body of f, after the
	// host created the frame of the activation.
	FunctionEnter(site int, f, this value.Value, args []value.Value)
	// FunctionExit is called when control leaves the current activation.
	FunctionExit(site int, ret value.Value)
	// OnReady is called once before the instrumented program runs; start
	// resumes its execution.
	OnReady(start func())
	// Teardown is called once at process exit.
	Teardown(ctx context.Context) error
}

// Scripts gives access to the host's script metadata.
type Scripts interface {
	// CurrentScript returns the id of the script currently executing.
	CurrentScript() int
	// SourceMap returns the static mapping of scripts and sites to source
	// locations, written next to the trace at teardown.
	SourceMap() tracefile.SourceMap
}

// ScriptMap is a Scripts implementation backed by a source map.
type ScriptMap struct {
	Current int
	Map     tracefile.SourceMap
}

func (s *ScriptMap) CurrentScript() int { return s.Current }

func (s *ScriptMap) SourceMap() tracefile.SourceMap { return s.Map }

// Config configures a Tracer.
type Config struct {
	// Output is the directory receiving the trace and its side files.
	// Defaults to tracefile.DefaultDir.
	Output string
	// BufferSize is the maximum size of the chunks delivered to the sink.
	// Defaults to tracebuf.DefaultSize.
	BufferSize int
	// Sink receives the trace chunks. When nil, chunks are sent to the
	// remote consumer if Remote is set, or written to the trace file of the
	// output directory otherwise.
	Sink tracebuf.Sink
	// Remote configures the remote consumer.
	Remote *remote.Config
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Tracer encodes events into trace records. It implements Analysis.
//
// A Tracer is not safe for concurrent use.
type Tracer struct {
	registry *shadow.Registry
	scripts  Scripts
	buffer   *tracebuf.Buffer
	sink     tracebuf.Sink
	output   string
	logger   *slog.Logger

	// Location of the last call or property access, used as the caller site
	// of the next Call record.
	lastScript int
	lastSite   int
	depth      int
	records    int64

	record tracefile.Record
	line   []byte
	done   bool
	err    error
}

// New constructs a tracer resolving identities through memory and reading
// script metadata from scripts.
func New(memory shadow.Memory, scripts Scripts, config Config) *Tracer {
	t := &Tracer{
		registry:   shadow.NewRegistry(memory),
		scripts:    scripts,
		output:     config.Output,
		logger:     config.Logger,
		lastScript: -1,
		lastSite:   -1,
	}
	if t.output == "" {
		t.output = tracefile.DefaultDir
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = tracebuf.DefaultSize
	}

	t.sink = config.Sink
	if t.sink == nil {
		if config.Remote != nil {
			remoteConfig := *config.Remote
			if remoteConfig.MaxMessageSize <= 0 {
				remoteConfig.MaxMessageSize = max(remote.DefaultMaxMessageSize, bufferSize)
			}
			if remoteConfig.Logger == nil {
				remoteConfig.Logger = t.logger
			}
			t.sink = remote.NewChannel(remoteConfig)
		} else {
			t.sink = tracebuf.NewFileSink(filepath.Join(t.output, tracefile.TraceFile))
		}
	}

	t.buffer = tracebuf.New(t.sink, bufferSize)
	return t
}

// Registry returns the identity registry of the tracer.
func (t *Tracer) Registry() *shadow.Registry { return t.registry }

// Output returns the directory receiving the side files.
func (t *Tracer) Output() string { return t.output }

// Records returns the number of records emitted so far.
func (t *Tracer) Records() int64 { return t.records }

// Depth returns the number of activations entered and not exited.
func (t *Tracer) Depth() int { return t.depth }

// Err returns the first error that occurred while delivering the trace.
func (t *Tracer) Err() error { return t.err }

func (t *Tracer) OnReady(start func()) {
	t.logger.Info("tracing started", "output", t.output, "buffer", t.buffer.Max())
	start()
}

func (t *Tracer) script() int { return t.scripts.CurrentScript() }

func (t *Tracer) setLastSite(site int) {
	t.lastScript = t.script()
	t.lastSite = site
}

func (t *Tracer) emit(r *tracefile.Record) {
	if t.done {
		return
	}
	t.line = tracefile.AppendRecord(t.line[:0], r)
	t.records++
	if err := t.buffer.Append(t.line); err != nil {
		t.fail(err)
	}
}

func (t *Tracer) fail(err error) {
	if t.err == nil {
		t.err = err
		t.logger.Error("trace delivery failed", "error", err)
	}
}

// encode reduces v to its code and type tag. Objects are resolved to their
// identity and strings are interned, so calling encode may allocate both.
func (t *Tracer) encode(v value.Value) tracefile.Value {
	v = value.Or(v)
	switch v.Kind() {
	case value.KindObject, value.KindFunction:
		if value.IsObject(v) {
			return tracefile.ObjectValue(t.registry.IdentityOf(v))
		}
	case value.KindString:
		return tracefile.StringValue(t.registry.InternValue(v))
	case value.KindUndefined:
		return tracefile.UndefinedValue
	case value.KindSymbol:
		code := tracefile.StringValue(t.registry.Intern(v.String())).Code
		return tracefile.Value{Code: code, Type: tracefile.Primitive}
	}
	return tracefile.PrimitiveValue(v.String())
}

func (t *Tracer) variable(kind tracefile.Kind, site int, name string, val value.Value) {
	r := &t.record
	*r = tracefile.Record{
		Kind:   kind,
		Script: t.script(),
		Site:   site,
		Frame:  t.registry.FrameOf(name),
	}
	r.Name = t.registry.Intern(name)
	r.Value = t.encode(val)
	t.emit(r)
}

func (t *Tracer) Read(site int, name string, val value.Value) {
	t.variable(tracefile.Read, site, name, val)
}

func (t *Tracer) Write(site int, name string, val value.Value) {
	t.variable(tracefile.Write, site, name, val)
}

func (t *Tracer) GetFieldPre(site int, base, key value.Value) {
	t.setLastSite(site)
}

// GetField emits a GetField record if the access targets a genuine property.
// The value is reduced before the key is interned.
func (t *Tracer) GetField(site int, base, key, val value.Value) {
	name := value.Key(key)
	r := &t.record
	*r = tracefile.Record{
		Kind:   tracefile.GetField,
		Script: t.script(),
		Site:   site,
		Frame:  t.registry.IdentityOf(base),
	}
	owner, isProperty := t.registry.Property(base, name, true)
	r.Owner = owner
	r.Value = t.encode(val)
	if !isProperty {
		return
	}
	r.Name = t.registry.Intern(name)
	t.emit(r)
}

// PutFieldPre emits a PutField record if the assignment targets a genuine
// property. The key is interned before the value is reduced.
func (t *Tracer) PutFieldPre(site int, base, key, val value.Value) {
	t.setLastSite(site)
	name := value.Key(key)
	r := &t.record
	*r = tracefile.Record{
		Kind:   tracefile.PutField,
		Script: t.script(),
		Site:   site,
		Frame:  t.registry.IdentityOf(base),
	}
	owner, isProperty := t.registry.Property(base, name, false)
	if !isProperty {
		return
	}
	r.Owner = owner
	r.Name = t.registry.Intern(name)
	r.Value = t.encode(val)
	t.emit(r)
}

func (t *Tracer) readProp(site int, obj value.Object, key string) {
	t.GetField(site, obj, value.String(key), obj.Get(key))
}

func (t *Tracer) writeProp(site int, obj value.Object, key string) {
	t.PutFieldPre(site, obj, value.String(key), obj.Get(key))
}

func (t *Tracer) readOwnProps(site int, obj value.Object) {
	for _, key := range obj.Keys() {
		t.readProp(site, obj, key)
	}
}

func (t *Tracer) writeOwnProps(site int, obj value.Object) {
	for _, key := range obj.Keys() {
		t.writeProp(site, obj, key)
	}
}

func (t *Tracer) writeFunctionProps(site int, f value.Object) {
	t.writeProp(site, f, "name")
	t.writeProp(site, f, "length")
	t.writeProp(site, f, "prototype")
}

// Literal emits a PutField record for every own enumerable data property of
// an object or array literal, and for the implicit properties of a function
// literal.
func (t *Tracer) Literal(site int, lit value.Value) {
	obj, ok := value.AsObject(lit)
	if !ok {
		return
	}
	if lit.Kind() == value.KindFunction {
		t.writeFunctionProps(site, obj)
		return
	}
	t.registry.IdentityOf(obj)
	for _, key := range obj.Keys() {
		if obj.IsData(key) {
			t.writeProp(site, obj, key)
		}
	}
}

// Declare emits the records binding a name in the current frame.
//
// Formal parameters produce a Declare record. The arguments collection
// produces a Declare record for itself followed by one per element, keyed by
// the identity of the collection. Function declarations are recorded as a
// Write in the callee's frame followed by writes of the function's implicit
// properties. Other declarations produce no record.
func (t *Tracer) Declare(site int, name string, val value.Value, argumentIndex int, isArgument, isCatchParam bool) {
	switch {
	case isArgument && argumentIndex >= 0:
		t.variable(tracefile.Declare, site, name, val)

	case isArgument:
		frame := t.registry.FrameOf(name)
		script := t.script()
		r := &t.record
		*r = tracefile.Record{
			Kind:   tracefile.Declare,
			Script: script,
			Site:   site,
			Frame:  frame,
		}
		r.Name = t.registry.Intern("arguments")
		r.Value = t.encode(val)
		t.emit(r)

		args, ok := value.AsObject(val)
		if !ok {
			return
		}
		collection := t.registry.IdentityOf(args)
		for i, arg := range value.Elements(args) {
			*r = tracefile.Record{
				Kind:   tracefile.Declare,
				Script: script,
				Site:   site,
				Frame:  collection,
			}
			r.Name = t.registry.Intern(value.Number(i).String())
			r.Value = t.encode(arg)
			t.emit(r)
		}

	case value.Or(val).Kind() == value.KindFunction:
		t.variable(tracefile.Write, site, name, val)
		if f, ok := value.AsObject(val); ok {
			t.writeFunctionProps(site, f)
		}
	}
}

// FunctionEnter emits the Call record of the activation followed by the
// Declare record binding the receiver in the new frame. The caller location
// is the last call or property access site seen by the tracer.
func (t *Tracer) FunctionEnter(site int, f, this value.Value, args []value.Value) {
	frame := t.registry.FrameOf("this")
	script := t.script()
	t.depth++

	r := &t.record
	*r = tracefile.Record{
		Kind:         tracefile.Call,
		Script:       t.lastScript,
		Site:         t.lastSite,
		CalleeScript: script,
		CalleeSite:   site,
		Frame:        frame,
	}
	r.Value = t.encode(f)
	t.emit(r)

	*r = tracefile.Record{
		Kind:   tracefile.Declare,
		Script: script,
		Site:   site,
		Frame:  frame,
	}
	r.Name = t.registry.Intern("this")
	r.Value = t.encode(this)
	t.emit(r)
}

// FunctionExit emits the Exit record of the current activation.
func (t *Tracer) FunctionExit(site int, ret value.Value) {
	if t.depth == 0 {
		t.logger.Warn("function exit without a matching enter", "script", t.script(), "site", site)
	} else {
		t.depth--
	}
	r := &t.record
	*r = tracefile.Record{
		Kind:   tracefile.Exit,
		Script: t.script(),
		Site:   site,
	}
	r.Value = t.encode(ret)
	t.emit(r)
}

var _ Analysis = (*Tracer)(nil)
