package stream

// ConvertReader returns a Reader producing the values of base passed through
// conv. Values converted before an error are still returned to the caller.
func ConvertReader[To, From any](base Reader[From], conv func(From) (To, error)) Reader[To] {
	return &convertReader[To, From]{base: base, conv: conv}
}

type convertReader[To, From any] struct {
	base Reader[From]
	buf  []From
	conv func(From) (To, error)
}

func (r *convertReader[To, From]) Read(values []To) (int, error) {
	if cap(r.buf) < len(values) {
		r.buf = make([]From, len(values))
	}
	n := 0
	for n < len(values) {
		rn, err := r.base.Read(r.buf[:len(values)-n])
		for _, v := range r.buf[:rn] {
			c, convErr := r.conv(v)
			if convErr != nil {
				return n, convErr
			}
			values[n] = c
			n++
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ConvertWriter returns a Writer passing values through conv before writing
// them to base. A conversion error aborts the whole batch.
func ConvertWriter[To, From any](base Writer[To], conv func(From) (To, error)) Writer[From] {
	return &convertWriter[To, From]{base: base, conv: conv}
}

type convertWriter[To, From any] struct {
	base Writer[To]
	buf  []To
	conv func(From) (To, error)
}

func (w *convertWriter[To, From]) Write(values []From) (int, error) {
	buf := w.buf[:0]
	for _, v := range values {
		c, err := w.conv(v)
		if err != nil {
			return 0, err
		}
		buf = append(buf, c)
	}
	w.buf = buf[:0]
	return w.base.Write(buf)
}
