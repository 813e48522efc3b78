package models

import "github.com/google/uuid"

// assignID gives a fresh primary key to rows created without one. Keys are
// generated client-side so the same models work on postgres and sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
