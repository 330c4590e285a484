package models

import "fmt"

// Record identifies one property title record by its zero-based position in
// the record stream.
type Record struct {
	Index int
}

func (r Record) String() string {
	return fmt.Sprintf("record #%d", r.Index)
}

// Credentials is the token used to authenticate with the lookup server. It is
// read once at startup and passed by value to the authenticate stage.
type Credentials struct {
	Token string
}

// String keeps the token out of logs.
func (c Credentials) String() string {
	if c.Token == "" {
		return "credentials(anonymous)"
	}
	return "credentials(redacted)"
}

// PopulatedRecord pairs a record with the outcome of looking up its
// information. It is immutable once built by the augment stage.
type PopulatedRecord struct {
	Record  Record
	Outcome Outcome
}
