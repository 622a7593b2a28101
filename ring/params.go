// Package ring implements arithmetic in the polynomial ring Z/2^k Z[X]/(X^N+1).
// Since the modulus is a power of two, every modular reduction is a bit mask.
package ring

import (
	"encoding/json"
	"fmt"
)

// MaxLogQ is the largest supported modulus exponent: 2^k must fit a uint64 coefficient.
const MaxLogQ = 63

// ParametersLiteral is a literal representation of ring parameters. It has public
// fields and is used to express unchecked user-defined parameters literally into
// Go programs. The [NewParametersFromLiteral] function is used to generate the
// actual checked parameters from the literal representation.
type ParametersLiteral struct {
	N    int `json:"N"`    // ring degree, X^N+1 is the ideal
	LogQ int `json:"LogQ"` // modulus exponent k, Q = 2^k
}

// Parameters represents a checked set of ring parameters. Its fields are private
// and immutable. See [ParametersLiteral] for user-specified parameters.
type Parameters struct {
	n    int
	logQ int
	mask uint64
}

// NewParameters returns a new set of ring parameters for the ring of degree N
// with modulus 2^logQ. It returns the empty parameters [Parameters]{} and a
// non-nil error if the specified parameters are invalid.
func NewParameters(N, logQ int) (params Parameters, err error) {

	if N < 1 {
		return Parameters{}, fmt.Errorf("cannot NewParameters: N=%d must be a positive integer", N)
	}

	if logQ < 1 || logQ > MaxLogQ {
		return Parameters{}, fmt.Errorf("cannot NewParameters: LogQ=%d must be in [1, %d]", logQ, MaxLogQ)
	}

	return Parameters{
		n:    N,
		logQ: logQ,
		mask: (uint64(1) << logQ) - 1,
	}, nil
}

// NewParametersFromLiteral instantiates a set of ring parameters from a
// [ParametersLiteral] specification.
func NewParametersFromLiteral(pl ParametersLiteral) (Parameters, error) {
	return NewParameters(pl.N, pl.LogQ)
}

// ParametersLiteral returns the [ParametersLiteral] of the target Parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		N:    p.n,
		LogQ: p.logQ,
	}
}

// N returns the ring degree.
func (p Parameters) N() int {
	return p.n
}

// LogQ returns the modulus exponent k.
func (p Parameters) LogQ() int {
	return p.logQ
}

// Q returns the modulus 2^k.
func (p Parameters) Q() uint64 {
	return p.mask + 1
}

// Mask returns Q-1, the bit mask that reduces a word modulo Q.
func (p Parameters) Mask() uint64 {
	return p.mask
}

// Equal returns true if the receiver and other describe the same ring.
func (p Parameters) Equal(other Parameters) bool {
	return p.n == other.n && p.logQ == other.logQ
}

func (p Parameters) String() string {
	return fmt.Sprintf("N=%d/LogQ=%d", p.n, p.logQ)
}

// MarshalJSON returns a JSON representation of this parameter set. See Marshal from the [encoding/json] package.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See Unmarshal from the [encoding/json] package.
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	var pl ParametersLiteral
	if err = json.Unmarshal(data, &pl); err != nil {
		return err
	}
	*p, err = NewParametersFromLiteral(pl)
	return
}
