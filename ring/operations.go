package ring

import (
	"fmt"

	"github.com/latticelab/lattice/utils"
)

// checkShape panics if the polynomials do not belong to the same ring.
func checkShape(op string, pols ...*Poly) {
	for _, p := range pols[1:] {
		if !p.params.Equal(pols[0].params) {
			panic(fmt.Errorf("cannot %s: ring mismatch %s != %s", op, pols[0].params, p.params))
		}
	}
}

// Add sets pol to p1 + p2 and returns pol.
func (pol *Poly) Add(p1, p2 *Poly) *Poly {
	checkShape("Add", pol, p1, p2)
	mask := pol.params.mask
	c1, c2, c3 := p1.coeffs, p2.coeffs, pol.coeffs
	for i := range c3 {
		c3[i] = (c1[i] + c2[i]) & mask
	}
	return pol
}

// AddNew returns pol + p1 on a new polynomial.
func (pol *Poly) AddNew(p1 *Poly) *Poly {
	return NewPoly(pol.params).Add(pol, p1)
}

// Sub sets pol to p1 - p2 and returns pol.
func (pol *Poly) Sub(p1, p2 *Poly) *Poly {
	checkShape("Sub", pol, p1, p2)
	mask := pol.params.mask
	c1, c2, c3 := p1.coeffs, p2.coeffs, pol.coeffs
	for i := range c3 {
		c3[i] = (c1[i] - c2[i]) & mask
	}
	return pol
}

// SubNew returns pol - p1 on a new polynomial.
func (pol *Poly) SubNew(p1 *Poly) *Poly {
	return NewPoly(pol.params).Sub(pol, p1)
}

// Neg sets pol to -p1 and returns pol.
func (pol *Poly) Neg(p1 *Poly) *Poly {
	checkShape("Neg", pol, p1)
	mask := pol.params.mask
	c1, c2 := p1.coeffs, pol.coeffs
	for i := range c2 {
		c2[i] = -c1[i] & mask
	}
	return pol
}

// MulScalar sets pol to p1 * scalar and returns pol.
func (pol *Poly) MulScalar(p1 *Poly, scalar uint64) *Poly {
	checkShape("MulScalar", pol, p1)
	mask := pol.params.mask
	c1, c2 := p1.coeffs, pol.coeffs
	for i := range c2 {
		c2[i] = (c1[i] * scalar) & mask
	}
	return pol
}

// MulByMonomial sets pol to p1 * X^k and returns pol.
// Negative k multiplies by X^-k = -X^(2N-k).
func (pol *Poly) MulByMonomial(p1 *Poly, k int) *Poly {
	checkShape("MulByMonomial", pol, p1)

	N := pol.params.n
	mask := pol.params.mask

	src := p1.coeffs
	if utils.Alias1D(src, pol.coeffs) {
		src = p1.Coefficients()
	}

	// X^2N = 1
	k %= 2 * N
	if k < 0 {
		k += 2 * N
	}

	for i, c := range src {
		e := i + k
		switch {
		case e < N:
			pol.coeffs[e] = c
		case e < 2*N:
			pol.coeffs[e-N] = -c & mask
		default:
			pol.coeffs[e-2*N] = c
		}
	}

	return pol
}

// Mul sets pol to p1 * p2 mod (X^N+1, 2^k) and returns pol.
// pol may alias p1 and/or p2: the product is then evaluated against
// a snapshot of the operands taken before pol is overwritten.
func (pol *Poly) Mul(p1, p2 *Poly) *Poly {
	checkShape("Mul", pol, p1, p2)

	c1, c2 := p1.coeffs, p2.coeffs

	if utils.Alias1D(c1, pol.coeffs) {
		c1 = p1.Coefficients()
	}

	if utils.Alias1D(c2, pol.coeffs) {
		if p2 == p1 {
			c2 = c1
		} else {
			c2 = p2.Coefficients()
		}
	}

	mulNegacyclic(c1, c2, pol.coeffs, pol.params.mask)

	return pol
}

// MulNew returns pol * p1 on a new polynomial.
func (pol *Poly) MulNew(p1 *Poly) *Poly {
	return NewPoly(pol.params).Mul(pol, p1)
}

// mulNegacyclic writes the schoolbook product of a and b reduced modulo
// (X^N+1, mask+1) on out. out must not alias a or b.
//
// Sums are accumulated on 64-bit words: 2^k divides 2^64, so wrapping
// modulo 2^64 before applying the mask yields the same residue as reducing
// the exact integer sum.
func mulNegacyclic(a, b, out []uint64, mask uint64) {

	N := len(out)

	acc := make([]uint64, 2*N-1)

	for i, ai := range a {
		if ai == 0 {
			continue
		}
		row := acc[i : i+N]
		for j, bj := range b {
			row[j] += ai * bj
		}
	}

	// X^N = -1: the coefficient of X^e, e >= N, is subtracted from X^(e-N)
	for e := 0; e < N; e++ {
		v := acc[e]
		if e+N < len(acc) {
			v -= acc[e+N]
		}
		out[e] = v & mask
	}
}
