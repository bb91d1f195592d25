// Package lead defines the lead submission payload and the caller-side
// validation contract. The relay forwards payloads as-is; required-field
// checks happen here, before the relay is ever invoked.
package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is one form submission: field name → string or bool, exactly as
// collected by the page. Field sets vary by page but always include at
// least a contact identifier.
type Payload map[string]any

// Submission wraps a payload with the server-side bookkeeping attached at
// the boundary: a generated id used only for log correlation (it is never
// forwarded as an idempotency key) and the receipt timestamp.
type Submission struct {
	ID         string
	ReceivedAt time.Time
	Payload    Payload
}

// NewSubmission stamps a payload. The submitted_at field is set only when
// the form did not provide one.
func NewSubmission(p Payload) Submission {
	if p == nil {
		p = Payload{}
	}
	if _, ok := p["submitted_at"]; !ok {
		p["submitted_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return Submission{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Payload:    p,
	}
}

// Field returns the named field as a trimmed string. Booleans and other
// non-string values read as empty.
func (p Payload) Field(name string) string {
	v, ok := p[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Bool returns the named field as a boolean. Checkbox values sometimes
// arrive as "true"/"on" strings; both forms count.
func (p Payload) Bool(name string) (value, present bool) {
	v, ok := p[name]
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "on" || s == "yes" || s == "1", true
	default:
		return false, true
	}
}

// Validate enforces the submission contract: a non-empty name, an email or
// phone, and explicit consent wherever a consent field was collected.
func (p Payload) Validate() error {
	name := p.Field("name")
	if name == "" {
		name = p.Field("firstName")
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Field("email") == "" && p.Field("phone") == "" {
		return fmt.Errorf("email or phone is required")
	}
	if consent, present := p.Bool("consent"); present && !consent {
		return fmt.Errorf("consent must be given")
	}
	return nil
}
