package authflow

import (
	"strings"
	"sync"
)

// TotalSteps is the number of signup steps.
const TotalSteps = 3

// stepFields lists the inputs shown on each step.
var stepFields = map[int][]string{
	1: {FieldFirstName, FieldLastName},
	2: {FieldEmail, FieldPassword},
	3: {FieldTerms},
}

// SignupData holds the last saved value of every signup input: trimmed
// strings for text inputs and bools for checkboxes.
type SignupData map[string]any

// String returns the text value saved for field.
func (d SignupData) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Bool returns the checkbox value saved for field.
func (d SignupData) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

// SignupWizard tracks progress through the three signup steps.
type SignupWizard struct {
	mu      sync.Mutex
	current int
	data    SignupData
}

// NewSignupWizard returns a wizard on step 1 with no data.
func NewSignupWizard() *SignupWizard {
	return &SignupWizard{current: 1, data: SignupData{}}
}

// Current returns the active step, starting at 1.
func (w *SignupWizard) Current() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Data returns a copy of the saved values.
func (w *SignupWizard) Data() SignupData {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(SignupData, len(w.data))
	for k, v := range w.data {
		out[k] = v
	}
	return out
}

// Fields returns the inputs shown on step.
func (w *SignupWizard) Fields(step int) []string {
	return append([]string(nil), stepFields[step]...)
}

// Next validates the current step's values. On success it saves them and
// moves forward, staying on the last step once there.
func (w *SignupWizard) Next(values map[string]any) *ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()

	if verr := validateStep(w.current, values); verr != nil {
		return verr
	}
	w.saveLocked(values)
	if w.current < TotalSteps {
		w.current++
	}
	return nil
}

// Save stores the current step's values without validating them.
func (w *SignupWizard) Save(values map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saveLocked(values)
}

// Prev moves back one step. It reports whether the step changed.
func (w *SignupWizard) Prev() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current <= 1 {
		return false
	}
	w.current--
	return true
}

// GoTo jumps to step when it is not ahead of the current step or the step
// before it has been completed. It reports whether the jump happened.
func (w *SignupWizard) GoTo(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if step < 1 || step > TotalSteps {
		return false
	}
	if step > w.current && !w.completedLocked(step-1) {
		return false
	}
	w.current = step
	return true
}

// IsStepCompleted reports whether the saved data satisfies step.
func (w *SignupWizard) IsStepCompleted(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completedLocked(step)
}

// Reset returns to step 1 and clears every saved value.
func (w *SignupWizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = 1
	w.data = SignupData{}
}

func (w *SignupWizard) completedLocked(step int) bool {
	switch step {
	case 1:
		return w.data.String(FieldFirstName) != "" && w.data.String(FieldLastName) != ""
	case 2:
		return w.data.String(FieldEmail) != "" && w.data.String(FieldPassword) != ""
	case 3:
		return w.data.Bool(FieldTerms)
	default:
		return false
	}
}

func (w *SignupWizard) saveLocked(values map[string]any) {
	for _, field := range stepFields[w.current] {
		v, ok := values[field]
		if !ok {
			continue
		}
		if s, isString := v.(string); isString {
			v = strings.TrimSpace(s)
		}
		w.data[field] = v
	}
}

func validateStep(step int, values map[string]any) *ValidationError {
	e := &ValidationError{}
	for _, field := range stepFields[step] {
		if field == FieldTerms {
			if b, _ := values[field].(bool); !b {
				e.Notices = append(e.Notices, TermsMessage)
			}
			continue
		}
		s, _ := values[field].(string)
		if msg := ValidateField(field, s); msg != "" {
			e.setField(field, msg)
		}
	}
	if e.empty() {
		return nil
	}
	return e
}
