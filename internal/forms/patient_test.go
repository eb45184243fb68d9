package forms

import "testing"

func validPatientValues() Values {
	return Values{
		"first_name": "Jordan",
		"last_name":  "Reid",
		"email":      "jordan@example.com",
		"gender":     "female",
		"age":        "34",
	}
}

func TestPatientFieldsAcceptValidValues(t *testing.T) {
	errs := Validate(validPatientValues(), PatientFields())
	if errs.HasErrors() {
		t.Fatalf("expected valid patient, got %v", errs)
	}
}

func TestPatientLastNameOptional(t *testing.T) {
	values := validPatientValues()
	values["last_name"] = ""

	errs := Validate(values, PatientFields())
	if errs.HasErrors() {
		t.Fatalf("last name should be optional, got %v", errs)
	}
}

func TestPatientGenderRestricted(t *testing.T) {
	field := fieldByName(t, PatientFields(), "gender")

	for _, gender := range []string{"male", "female", "other", "Female"} {
		if msg := ValidateField(field, Values{"gender": gender}); msg != "" {
			t.Fatalf("gender %q rejected: %q", gender, msg)
		}
	}
	if msg := ValidateField(field, Values{"gender": "unknown"}); msg != "Gender must be male, female, or other." {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestPatientAgeMustBeAdult(t *testing.T) {
	field := fieldByName(t, PatientFields(), "age")

	if msg := ValidateField(field, Values{"age": "17"}); msg != "Age must be 18 or older." {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := ValidateField(field, Values{"age": "abc"}); msg != "Age must be a valid number." {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := ValidateField(field, Values{"age": "18"}); msg != "" {
		t.Fatalf("expected valid at 18, got %q", msg)
	}
}
