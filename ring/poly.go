package ring

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"

	"github.com/latticelab/lattice/utils/buffer"
	"github.com/latticelab/lattice/utils/sampling"
)

// maxDecodedN bounds the degree accepted by ReadFrom.
const maxDecodedN = 1 << 24

// Poly is an element of Z/2^k Z[X]/(X^N+1). Coefficient i is the
// coefficient of X^i and is always held in [0, 2^k).
type Poly struct {
	params Parameters
	coeffs []uint64
}

// NewPoly creates a new polynomial with params.N() coefficients set to zero.
func NewPoly(params Parameters) *Poly {
	if params.n == 0 {
		panic(fmt.Errorf("cannot NewPoly: uninitialized parameters"))
	}
	return &Poly{
		params: params,
		coeffs: make([]uint64, params.n),
	}
}

// NewPolyFromDegree creates a zero polynomial of the given degree with modulus 2^k.
func NewPolyFromDegree(degree, k int) (*Poly, error) {
	params, err := NewParameters(degree, k)
	if err != nil {
		return nil, fmt.Errorf("cannot NewPolyFromDegree: %w", err)
	}
	return NewPoly(params), nil
}

// Parameters returns the parameters of the ring the polynomial belongs to.
func (pol *Poly) Parameters() Parameters {
	return pol.params
}

// Degree returns the number of coefficients N.
func (pol *Poly) Degree() int {
	return pol.params.n
}

// K returns the modulus exponent.
func (pol *Poly) K() int {
	return pol.params.logQ
}

// Modulus returns 2^k.
func (pol *Poly) Modulus() uint64 {
	return pol.params.Q()
}

// Get returns the coefficient of X^i.
func (pol *Poly) Get(i int) uint64 {
	pol.checkIndex(i)
	return pol.coeffs[i]
}

// Set sets the coefficient of X^i to v mod 2^k.
func (pol *Poly) Set(i int, v uint64) {
	pol.checkIndex(i)
	pol.coeffs[i] = v & pol.params.mask
}

func (pol *Poly) checkIndex(i int) {
	if i < 0 || i >= pol.params.n {
		panic(fmt.Errorf("coefficient index %d out of range [0, %d)", i, pol.params.n))
	}
}

// Coefficients returns a copy of the coefficients.
func (pol *Poly) Coefficients() []uint64 {
	c := make([]uint64, len(pol.coeffs))
	copy(c, pol.coeffs)
	return c
}

// SetCoefficients sets the coefficients to coeffs reduced mod 2^k.
// The length of coeffs must equal the degree.
func (pol *Poly) SetCoefficients(coeffs []uint64) {
	if len(coeffs) != pol.params.n {
		panic(fmt.Errorf("cannot SetCoefficients: len(coeffs)=%d != N=%d", len(coeffs), pol.params.n))
	}
	mask := pol.params.mask
	for i, c := range coeffs {
		pol.coeffs[i] = c & mask
	}
}

// Zero sets all coefficients of the target polynomial to 0.
func (pol *Poly) Zero() {
	for i := range pol.coeffs {
		pol.coeffs[i] = 0
	}
}

// IsZero returns true if all coefficients are 0.
func (pol *Poly) IsZero() bool {
	for _, c := range pol.coeffs {
		if c != 0 {
			return false
		}
	}
	return true
}

// CopyNew creates an exact and independent copy of the target polynomial.
func (pol *Poly) CopyNew() *Poly {
	return &Poly{
		params: pol.params,
		coeffs: pol.Coefficients(),
	}
}

// Copy copies the coefficients of other on the target polynomial.
func (pol *Poly) Copy(other *Poly) {
	checkShape("Copy", pol, other)
	if pol != other {
		copy(pol.coeffs, other.coeffs)
	}
}

// Equal returns true if both polynomials belong to the same ring and have the same coefficients.
func (pol *Poly) Equal(other *Poly) bool {
	if pol == other {
		return true
	}
	if pol == nil || other == nil {
		return false
	}
	return pol.params.Equal(other.params) && cmp.Equal(pol.coeffs, other.coeffs)
}

// UniformInit sets every coefficient to an independent uniform value in [0, 2^k)
// read from prng.
func (pol *Poly) UniformInit(prng sampling.PRNG) {
	NewUniformSampler(prng, pol.params).Read(pol)
}

// BinarySize returns the serialized size of the object in bytes.
func (pol *Poly) BinarySize() int {
	return 8 + 1 + pol.params.n<<3
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
//
// Unless w implements the buffer.Writer interface (see lattice/utils/buffer/writer.go),
// it will be wrapped into a bufio.Writer.
func (pol *Poly) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64[int](w, pol.params.n); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		if inc, err = buffer.WriteUint8(w, uint8(pol.params.logQ)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteUint8: %w", err)
		}
		n += inc

		if inc, err = buffer.WriteUint64Slice(w, pol.coeffs); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteUint64Slice: %w", err)
		}
		n += inc

		return n, w.Flush()

	default:
		return pol.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface. The ring of the target polynomial is replaced
// by the one read.
//
// Unless r implements the buffer.Reader interface (see lattice/utils/buffer/reader.go),
// it will be wrapped into a bufio.Reader.
func (pol *Poly) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		var N int
		if inc, err = buffer.ReadAsUint64[int](r, &N); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		var logQ uint8
		if inc, err = buffer.ReadUint8(r, &logQ); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadUint8: %w", err)
		}
		n += inc

		if N > maxDecodedN {
			return n, fmt.Errorf("cannot ReadFrom: N=%d exceeds %d", N, maxDecodedN)
		}

		var params Parameters
		if params, err = NewParameters(N, int(logQ)); err != nil {
			return n, fmt.Errorf("cannot ReadFrom: %w", err)
		}

		coeffs := make([]uint64, N)
		if inc, err = buffer.ReadUint64Slice(r, coeffs); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadUint64Slice: %w", err)
		}
		n += inc

		for i, c := range coeffs {
			if c > params.mask {
				return n, fmt.Errorf("cannot ReadFrom: coefficient %d = %d is not reduced modulo 2^%d", i, c, logQ)
			}
		}

		pol.params = params
		pol.coeffs = coeffs

		return n, nil

	default:
		return pol.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (pol *Poly) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(pol.BinarySize())
	_, err = pol.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by
// MarshalBinary or WriteTo on the object.
func (pol *Poly) UnmarshalBinary(p []byte) (err error) {
	_, err = pol.ReadFrom(buffer.NewBuffer(p))
	return
}
