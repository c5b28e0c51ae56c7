package ir

// Version constants for the record and event schema.
const (
	// SchemaVersion is the record/event schema version.
	SchemaVersion = "1"

	// EngineVersion is the ledger engine version.
	EngineVersion = "0.1.0"
)
