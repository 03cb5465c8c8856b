package domain

import "time"

// EntryMeta is the per-entry metadata record persisted next to a store
// entry's artifact tree. It is written before the built marker.
type EntryMeta struct {
	Hash      string    `json:"hash,omitzero"`
	Name      string    `json:"name,omitzero"`
	Version   string    `json:"version,omitzero"`
	Source    string    `json:"source,omitzero"`
	DepHashes []string  `json:"dep_hashes,omitzero"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
}

// SessionRecord registers a live environment so the store sweep treats its
// member entries as referenced.
type SessionRecord struct {
	EnvironmentID string    `json:"environment_id,omitzero"`
	PID           int       `json:"pid,omitzero"`
	StoreHashes   []string  `json:"store_hashes,omitzero"`
	StartedAt     time.Time `json:"started_at,omitzero"`
}
