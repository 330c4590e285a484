package models

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Outcome is the result of processing one record. It is a closed set:
// Success, PartialSuccess and Error are the only implementations.
type Outcome interface {
	outcome()
	// Kind names the variant for logs and persisted payloads.
	Kind() string
}

// Success means the record was fully processed.
type Success struct{}

// PartialSuccess means the record was processed but some information was
// missing from the remote source.
type PartialSuccess struct{}

// Error means processing failed. It carries the originating record and a
// human readable reason.
type Error struct {
	Record  Record
	Message string
}

func (Success) outcome()        {}
func (PartialSuccess) outcome() {}
func (Error) outcome()          {}

func (Success) Kind() string        { return "success" }
func (PartialSuccess) Kind() string { return "partial_success" }
func (Error) Kind() string          { return "error" }

// populatedRecordJSON is the persisted shape of a PopulatedRecord.
type populatedRecordJSON struct {
	Index   int    `json:"index"`
	Title   string `json:"title_number"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// MarshalJSON flattens the outcome variant into a tagged object.
func (p PopulatedRecord) MarshalJSON() ([]byte, error) {
	out := populatedRecordJSON{
		Index: p.Record.Index,
		Title: TitleNumber(p.Record),
	}
	switch o := p.Outcome.(type) {
	case Success, PartialSuccess:
		out.Outcome = o.Kind()
	case Error:
		out.Outcome = o.Kind()
		out.Error = o.Message
	default:
		return nil, errors.AssertionFailedf("unknown outcome %T for %s", p.Outcome, p.Record)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a PopulatedRecord written by MarshalJSON.
func (p *PopulatedRecord) UnmarshalJSON(data []byte) error {
	var in populatedRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Record = Record{Index: in.Index}
	switch in.Outcome {
	case Success{}.Kind():
		p.Outcome = Success{}
	case PartialSuccess{}.Kind():
		p.Outcome = PartialSuccess{}
	case Error{}.Kind():
		p.Outcome = Error{Record: p.Record, Message: in.Error}
	default:
		return errors.Newf("unknown outcome %q", in.Outcome)
	}
	return nil
}
