package ring

import (
	"encoding/binary"
	"fmt"

	"github.com/latticelab/lattice/utils/sampling"
)

const randomBufferSize = 1024

// UniformSampler wraps a sampling.PRNG and represents the state of a sampler
// of polynomials with coefficients uniformly distributed in [0, 2^k).
// It is not safe for concurrent use.
type UniformSampler struct {
	prng         sampling.PRNG
	params       Parameters
	randomBuffer []byte
	ptr          int
}

// NewUniformSampler creates a new instance of UniformSampler from a PRNG and ring parameters.
func NewUniformSampler(prng sampling.PRNG, params Parameters) *UniformSampler {
	return &UniformSampler{
		prng:         prng,
		params:       params,
		randomBuffer: make([]byte, randomBufferSize),
		ptr:          randomBufferSize,
	}
}

// WithPRNG returns a new UniformSampler over the same ring reading from prng.
func (u *UniformSampler) WithPRNG(prng sampling.PRNG) *UniformSampler {
	return NewUniformSampler(prng, u.params)
}

// Read samples pol uniformly.
func (u *UniformSampler) Read(pol *Poly) {

	if !pol.params.Equal(u.params) {
		panic(fmt.Errorf("cannot Read: ring mismatch %s != %s", pol.params, u.params))
	}

	mask := u.params.mask
	buffer := u.randomBuffer
	ptr := u.ptr

	for i := range pol.coeffs {

		// Refills the buffer if it runs empty
		if ptr == len(buffer) {
			if _, err := u.prng.Read(buffer); err != nil {
				// Sanity check, this error should not happen.
				panic(err)
			}
			ptr = 0
		}

		// Q is a power of two: masking a uniform word is uniform in [0, Q).
		pol.coeffs[i] = binary.BigEndian.Uint64(buffer[ptr:ptr+8]) & mask
		ptr += 8
	}

	u.ptr = ptr
}

// ReadNew generates a new polynomial with coefficients following a uniform distribution over [0, 2^k).
func (u *UniformSampler) ReadNew() (pol *Poly) {
	pol = NewPoly(u.params)
	u.Read(pol)
	return
}
