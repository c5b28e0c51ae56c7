// Package address derives the deterministic storage addresses used by every
// record in the ledger.
//
// An address is computed from a namespace tag and a tuple of key parts:
//
//	SHA256(namespace || part_1 || ... || part_n || bump || program || "ProgramDerivedAddress")
//
// Bumps are tried from 255 downwards and the first candidate that does not
// decode as an ed25519 point is taken. The winning bump is the derivation
// proof: anyone holding (namespace, parts, bump) can recompute the address
// without consulting an index.
//
// The namespace is always the first seed, so two record types can never
// share an address for the same remaining parts.
package address
