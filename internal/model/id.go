package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string used for run identifiers and measure handles.
func NewID() string {
	return ulid.Make().String()
}
