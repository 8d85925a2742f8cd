package model

import "github.com/oklog/ulid/v2"

// NewID returns a new ULID string. Sail handles are ULIDs so that they sort
// by creation time and stay unique across process restarts.
func NewID() string {
	return ulid.Make().String()
}
