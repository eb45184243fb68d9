package forms

// Values holds the raw string state of a form keyed by field name.
type Values map[string]string

// Get returns the value for name, treating missing keys as empty.
func (v Values) Get(name string) string {
	if v == nil {
		return ""
	}
	return v[name]
}

// Clone returns a shallow copy of the values map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Errors maps field names to validation messages. An absent or empty entry
// means the field is valid.
type Errors map[string]string

// HasErrors reports whether any non-empty message is present.
func (e Errors) HasErrors() bool {
	for _, message := range e {
		if message != "" {
			return true
		}
	}
	return false
}

// InputType describes how the field is rendered; it also participates in
// validation (textarea fields get trim-aware required and length checks).
type InputType string

const (
	InputText     InputType = "text"
	InputEmail    InputType = "email"
	InputRadio    InputType = "radio"
	InputTextarea InputType = "textarea"
)

// RuleKind selects the format rule applied to a non-empty value.
type RuleKind string

const (
	RuleNameWithSpace         RuleKind = "nameWithSpace"
	RuleEmail                 RuleKind = "email"
	RulePhoneNumber           RuleKind = "phoneNumber"
	RuleAlphanumericWithSpace RuleKind = "alphanumericWithSpace"
	RuleTextarea              RuleKind = "textarea"
	RuleClinicOrderQuantity   RuleKind = "clinicOrderQuantity"
	RuleGender                RuleKind = "gender"
	RulePatientAge            RuleKind = "patientAge"
)

// Rules bundles the validation constraints for a field.
type Rules struct {
	Kind      RuleKind
	MinLength int
	MaxLength int
}

// Field describes one form input: identity, presentation hints, and rules.
// RequiredFunc, when set, derives requiredness from the current form values
// and takes precedence over the static Required flag.
type Field struct {
	Name         string
	Label        string
	Type         InputType
	Placeholder  string
	Required     bool
	RequiredFunc func(Values) bool
	Rules        Rules
}

// IsRequired resolves the field's requiredness against the current values.
func (f Field) IsRequired(values Values) bool {
	if f.RequiredFunc != nil {
		return f.RequiredFunc(values)
	}
	return f.Required
}
