package fsm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/latticelab/lattice/utils"
	"github.com/latticelab/lattice/utils/buffer"
)

// BinarySize returns the serialized size of the object in bytes.
func (f *FSM) BinarySize() int {
	return 8 + len(f.states)*9 + 8 + len(f.transitions)*24 + 8
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
// States and transition records are written in increasing order of
// identifier, followed by the current state.
//
// Unless w implements the buffer.Writer interface (see lattice/utils/buffer/writer.go),
// it will be wrapped into a bufio.Writer.
func (f *FSM) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteAsUint64[int](w, len(f.states)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		for _, id := range utils.GetSortedKeys(f.states) {

			if inc, err = buffer.WriteAsUint64[int](w, id); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
			}
			n += inc

			var accept uint8
			if f.states[id].Accept {
				accept = 1
			}

			if inc, err = buffer.WriteUint8(w, accept); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteUint8: %w", err)
			}
			n += inc
		}

		if inc, err = buffer.WriteAsUint64[int](w, len(f.transitions)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		for _, id := range utils.GetSortedKeys(f.transitions) {
			next := f.transitions[id].Next
			if inc, err = buffer.WriteUint64Slice(w, []uint64{uint64(id), uint64(next[0]), uint64(next[1])}); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteUint64Slice: %w", err)
			}
			n += inc
		}

		if inc, err = buffer.WriteAsUint64[int](w, f.current); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		return n, w.Flush()

	default:
		return f.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface. The content of the target automaton is replaced.
//
// Unless r implements the buffer.Reader interface (see lattice/utils/buffer/reader.go),
// it will be wrapped into a bufio.Reader.
func (f *FSM) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		g := newFSM()

		var count int
		if inc, err = buffer.ReadAsUint64[int](r, &count); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		for i := 0; i < count; i++ {

			var id int
			if inc, err = buffer.ReadAsUint64[int](r, &id); err != nil {
				return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
			}
			n += inc

			var accept uint8
			if inc, err = buffer.ReadUint8(r, &accept); err != nil {
				return n + inc, fmt.Errorf("buffer.ReadUint8: %w", err)
			}
			n += inc

			if id < 0 || accept > 1 {
				return n, fmt.Errorf("cannot ReadFrom: invalid state encoding (id=%d, accept=%d)", id, accept)
			}

			g.addState(id, accept == 1)
		}

		if inc, err = buffer.ReadAsUint64[int](r, &count); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		record := make([]uint64, 3)
		for i := 0; i < count; i++ {

			if inc, err = buffer.ReadUint64Slice(r, record); err != nil {
				return n + inc, fmt.Errorf("buffer.ReadUint64Slice: %w", err)
			}
			n += inc

			from, next0, next1 := int(record[0]), int(record[1]), int(record[2])
			if from < 0 || next0 < 0 || next1 < 0 {
				return n, fmt.Errorf("cannot ReadFrom: invalid transition encoding %v", record)
			}

			g.addTransition(from, next0, next1)
		}

		if inc, err = buffer.ReadAsUint64[int](r, &g.current); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		if g.current < 0 {
			return n, fmt.Errorf("cannot ReadFrom: invalid current state %d", g.current)
		}

		*f = *g

		return n, nil

	default:
		return f.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (f *FSM) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(f.BinarySize())
	_, err = f.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by
// MarshalBinary or WriteTo on the object.
func (f *FSM) UnmarshalBinary(p []byte) (err error) {
	_, err = f.ReadFrom(buffer.NewBuffer(p))
	return
}

// Fingerprint returns the blake3 digest of the binary encoding of the
// minimized automaton. Two valid automata have the same fingerprint if and
// only if they recognize the same language (up to hash collisions).
// The receiver is not modified.
func (f *FSM) Fingerprint() (digest [32]byte, err error) {

	canonical := f.CopyNew()
	if _, err = canonical.HopcroftOptimization(); err != nil {
		return digest, fmt.Errorf("cannot Fingerprint: %w", err)
	}

	data, err := canonical.MarshalBinary()
	if err != nil {
		return digest, fmt.Errorf("cannot Fingerprint: %w", err)
	}

	hasher := blake3.New()
	if _, err = hasher.Write(data); err != nil {
		return digest, fmt.Errorf("cannot Fingerprint: %w", err)
	}

	copy(digest[:], hasher.Sum(nil))

	return digest, nil
}

// Equivalent returns true if a and b recognize the same language.
// Neither automaton is modified. It returns an error if either automaton is invalid.
func Equivalent(a, b *FSM) (bool, error) {

	ma, mb := a.CopyNew(), b.CopyNew()

	if _, err := ma.HopcroftOptimization(); err != nil {
		return false, fmt.Errorf("cannot Equivalent: %w", err)
	}

	if _, err := mb.HopcroftOptimization(); err != nil {
		return false, fmt.Errorf("cannot Equivalent: %w", err)
	}

	return ma.Equal(mb), nil
}
