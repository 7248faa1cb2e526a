package models

import "github.com/google/uuid"

// assignID fills in a primary key before insert. Postgres has column defaults
// for this, but rows built in Go often need the id before the insert returns.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
