// Package kvstore is the goleveldb host.
//
// Key layout (one-byte prefix, then a fixed-width key):
//
//	V                 schema version, 4 bytes big endian
//	R + address       record entry (namespace, payer, deposit, data)
//	B + identity      lamport balance, 8 bytes big endian
//	E + seq           event, 8-byte big-endian seq so keys sort in log order
//
// In Batch mode a Tx buffers every write in a leveldb.Batch, serves reads
// from an overlay of its own pending writes, and applies the batch with one
// atomic Write on Commit. In Direct mode each Tx operation is written as soon
// as it succeeds and Rollback undoes nothing; the store then reports
// Atomic() == false and callers must order their writes accordingly.
package kvstore
