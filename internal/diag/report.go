package diag

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// Phase names tag which pipeline stage raised a Report.
const (
	PhaseLex        = "lex"
	PhaseParse      = "parse"
	PhaseSyntax     = "syntax"
	PhaseImport     = "import"
	PhaseSemantic   = "semantic"
	PhaseSymbols    = "symbols"
	PhaseTypeCheck  = "typecheck"
	PhaseExecLower  = "execlower"
	PhaseBackend    = "backend"
	PhaseDriver     = "driver"
)

// Fix describes an opaque, accepted autofix text edit. The core never
// interprets or applies a Fix; it is consumed by the out-of-scope
// filesystem autofix machinery.
type Fix struct {
	Span        token.Span `json:"span"`
	Replacement string     `json:"replacement"`
	RuleCode    string      `json:"ruleCode"`
}

// Report is the canonical structured diagnostic record for the
// compiler core.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
	Span    token.Span     `json:"span"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

const schemaV1 = "coppice.diag/v1"

// New builds a Report with the standard schema tag.
func New(code, phase, path, message string, span token.Span) *Report {
	return &Report{
		Schema:  schemaV1,
		Code:    code,
		Phase:   phase,
		Path:    path,
		Message: message,
		Span:    span,
	}
}

// WithData attaches structured context data and returns the Report for
// chaining.
func (r *Report) WithData(data map[string]any) *Report {
	r.Data = data
	return r
}

// ToJSON serializes the Report deterministically: fields appear in
// declaration order and the keys of Data are sorted.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReportError wraps a Report so it can travel as a Go error while
// remaining recoverable via errors.As.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown diagnostic"
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// Wrap returns r as an error, or nil if r is nil.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// As extracts a Report from an error chain.
func As(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Sink accumulates Reports produced within a single phase/pass. It is
// the deferred-diagnostic buffer used by the lexer and parser: errors
// are appended as they are found and flushed at expression/statement
// boundaries by the caller.
type Sink struct {
	reports []*Report
}

// Add appends a Report to the sink.
func (s *Sink) Add(r *Report) { s.reports = append(s.reports, r) }

// Reports returns the accumulated Reports in insertion order.
func (s *Sink) Reports() []*Report { return s.reports }

// Len reports how many diagnostics are pending.
func (s *Sink) Len() int { return len(s.reports) }
