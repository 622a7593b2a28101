/*
Package lattice provides two computational primitives written in pure Go.

Package ring implements arithmetic in the negacyclic ring Z/2^kZ[x]/(x^n+1), with
uniform sampling from an injectable PRNG and a binary codec.

Package fsm implements deterministic finite automata over {0, 1}, loaded from
text or YAML descriptions, with validation, bit-by-bit execution, Hopcroft
minimization, language equivalence and fingerprints.
*/
package lattice
