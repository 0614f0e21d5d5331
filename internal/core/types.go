package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Field names of a person document, in the order used for validation messages.
const (
	FieldName       = "name"
	FieldLastName   = "last_name"
	FieldEmail      = "email"
	FieldAge        = "age"
	FieldSex        = "sex"
	FieldAddress    = "address"
	FieldCountry    = "country"
	FieldDegree     = "degree"
	FieldUniversity = "university"
	FieldStatus     = "status"
)

// RequiredFields lists every field an accepted person must carry.
// The order is fixed so rejection messages are reproducible.
var RequiredFields = []string{
	FieldName,
	FieldLastName,
	FieldEmail,
	FieldAge,
	FieldSex,
	FieldAddress,
	FieldCountry,
	FieldDegree,
	FieldUniversity,
	FieldStatus,
}

// Person is a validated person document.
type Person struct {
	Name       string `json:"name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Age        int    `json:"age"`
	Sex        string `json:"sex"`
	Address    string `json:"address"`
	Country    string `json:"country"`
	Degree     string `json:"degree"`
	University string `json:"university"`
	Status     bool   `json:"status"`
}

// StoredPerson is a person together with its document ID.
type StoredPerson struct {
	ID string `json:"id"`
	Person
}

// Gateway is the document store used by the service.
// Implementations return ErrNotFound for unknown IDs and must apply each
// call atomically.
type Gateway interface {
	Create(ctx context.Context, id string, p Person) error
	Get(ctx context.Context, id string) (Person, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]StoredPerson, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// RawRow is one data line of an uploaded CSV keyed by header name.
type RawRow struct {
	Line   int            // 1-based file line; the header is line 1
	Values map[string]any // header -> raw cell value
}

// Rejection records why one row was not imported.
type Rejection struct {
	Line   int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportPhase indicates the current stage of an import.
type ImportPhase string

const (
	PhaseReceived      ImportPhase = "received"
	PhaseParsing       ImportPhase = "parsing"
	PhaseParseFailed   ImportPhase = "parse_failed"
	PhaseRowProcessing ImportPhase = "row_processing"
	PhaseCompleted     ImportPhase = "completed"
	PhaseInterrupted   ImportPhase = "interrupted"
)

// ImportOutcome is the aggregate result of one import.
type ImportOutcome struct {
	FileName   string
	Phase      ImportPhase
	Total      int
	Accepted   int
	Rejections []Rejection
	Duration   time.Duration
}

// Rejected returns the number of rows that were not imported.
func (o *ImportOutcome) Rejected() int {
	return len(o.Rejections)
}

// Processed returns the number of rows handled before the import stopped.
func (o *ImportOutcome) Processed() int {
	return o.Accepted + len(o.Rejections)
}

// Interrupted reports whether the import stopped before every row was handled.
func (o *ImportOutcome) Interrupted() bool {
	return o.Phase == PhaseInterrupted
}

// Success reports whether at least one row was imported.
// An import that ran to completion but accepted nothing is a failure.
func (o *ImportOutcome) Success() bool {
	return o.Accepted > 0
}

// Message returns the human-readable summary of the outcome.
func (o *ImportOutcome) Message() string {
	if o.Interrupted() {
		return fmt.Sprintf("Import interrupted: inserted %d of %d records", o.Accepted, o.Total)
	}
	if len(o.Rejections) > 0 {
		return fmt.Sprintf("Inserted %d of %d records", o.Accepted, o.Total)
	}
	return fmt.Sprintf("Inserted %d records successfully", o.Accepted)
}

// Upload describes an incoming CSV file.
type Upload struct {
	FileName string
	Size     int64  // declared size, 0 if unknown
	Charset  string // declared charset, empty means UTF-8
	Body     io.Reader
}

// Page is one page of persons.
type Page struct {
	Items []StoredPerson
	Total int64
	Page  int
	Limit int
	Pages int
}
