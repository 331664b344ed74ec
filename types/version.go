package types

// Version is the canonical project version.
// The CLI, the notification payloads and the state file share it.
const Version = "0.3.0"

// StateFileVersion is the on-disk state file format version.
// Bumped independently of Version when the encoded layout changes.
const StateFileVersion = 1
