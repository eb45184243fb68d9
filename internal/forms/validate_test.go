package forms

import (
	"strings"
	"testing"
)

func fieldByName(t *testing.T, fields []Field, name string) Field {
	t.Helper()
	for _, field := range fields {
		if field.Name == name {
			return field
		}
	}
	t.Fatalf("field %q not found", name)
	return Field{}
}

func TestValidateFieldRequired(t *testing.T) {
	field := fieldByName(t, BillingFields(), "first_name")
	values := Values{"first_name": ""}

	if msg := ValidateField(field, values); msg != "First Name is required." {
		t.Fatalf("unexpected message: %q", msg)
	}

	values["first_name"] = "Jordan"
	if msg := ValidateField(field, values); msg != "" {
		t.Fatalf("expected valid, got %q", msg)
	}
}

func TestValidateFieldOptionalEmptyShortCircuits(t *testing.T) {
	field := fieldByName(t, BillingFields(), "last_name")

	// Optional and empty: every other rule is skipped.
	if msg := ValidateField(field, Values{"last_name": ""}); msg != "" {
		t.Fatalf("expected no error for empty optional field, got %q", msg)
	}

	// Optional but non-empty: format and length rules still apply.
	if msg := ValidateField(field, Values{"last_name": "ab"}); msg == "" {
		t.Fatal("expected length error for short optional value")
	}
	if msg := ValidateField(field, Values{"last_name": "d0e"}); msg == "" {
		t.Fatal("expected format error for digits in name")
	}
}

func TestValidateFieldNameWithSpace(t *testing.T) {
	field := fieldByName(t, BillingFields(), "first_name")

	valid := []string{"Jordan", "Mary Jane", "abc"}
	for _, value := range valid {
		if msg := ValidateField(field, Values{"first_name": value}); msg != "" {
			t.Fatalf("expected %q valid, got %q", value, msg)
		}
	}

	if msg := ValidateField(field, Values{"first_name": "Mary Jane Watson"}); msg == "" {
		t.Fatal("two spaces between words must fail")
	}
	if msg := ValidateField(field, Values{"first_name": "O'Brien"}); msg == "" {
		t.Fatal("punctuation must fail")
	}

	// Leading/trailing/double spaces fail the space policy even though the
	// trimmed value matches the pattern.
	for _, value := range []string{" Jordan", "Jordan ", "Mary  Jane"} {
		msg := ValidateField(field, Values{"first_name": value})
		if !strings.Contains(msg, "multiple or leading/trailing spaces") {
			t.Fatalf("expected space policy error for %q, got %q", value, msg)
		}
	}
}

func TestValidateFieldEmail(t *testing.T) {
	field := fieldByName(t, BillingFields(), "email")

	if msg := ValidateField(field, Values{"email": "jordan@example.com"}); msg != "" {
		t.Fatalf("expected valid email, got %q", msg)
	}
	for _, value := range []string{"not-an-email", "a@b", "a b@c.com", "@c.com"} {
		if msg := ValidateField(field, Values{"email": value}); msg != "Please enter a valid email address." {
			t.Fatalf("expected email error for %q, got %q", value, msg)
		}
	}
}

func TestValidateFieldPhoneNumber(t *testing.T) {
	field := fieldByName(t, BillingFields(), "phone_number")

	if msg := ValidateField(field, Values{"phone_number": "0211234567"}); msg != "" {
		t.Fatalf("expected valid phone, got %q", msg)
	}
	if msg := ValidateField(field, Values{"phone_number": "+6421123456"}); msg == "" {
		t.Fatal("non-digit characters must fail")
	}
	if msg := ValidateField(field, Values{"phone_number": "123456789"}); msg == "" {
		t.Fatal("nine digits must fail")
	}
	if msg := ValidateField(field, Values{"phone_number": "1234567890123456"}); msg == "" {
		t.Fatal("sixteen digits must fail")
	}
}

func TestValidateFieldPostcode(t *testing.T) {
	field := fieldByName(t, BillingFields(), "postcode")

	if msg := ValidateField(field, Values{"postcode": "SW1A 1AA"}); msg != "" {
		t.Fatalf("expected valid postcode, got %q", msg)
	}
	if msg := ValidateField(field, Values{"postcode": "90210-1"}); msg == "" {
		t.Fatal("special characters must fail")
	}
	if msg := ValidateField(field, Values{"postcode": " 9021"}); msg == "" {
		t.Fatal("leading space must fail")
	}
	if msg := ValidateField(field, Values{"postcode": "90"}); msg == "" {
		t.Fatal("too-short postcode must fail")
	}
}

func TestValidateFieldTextarea(t *testing.T) {
	field := fieldByName(t, BillingFields(), "street_address")

	if msg := ValidateField(field, Values{"street_address": "12 Queen Street"}); msg != "" {
		t.Fatalf("expected valid address, got %q", msg)
	}

	// Whitespace-only value passes the length gate but fails the trim-aware
	// required check.
	if msg := ValidateField(field, Values{"street_address": "     "}); msg != "Street Address is required" {
		t.Fatalf("unexpected message: %q", msg)
	}

	if msg := ValidateField(field, Values{"street_address": "abc"}); msg == "" {
		t.Fatal("short address must fail")
	}
	if msg := ValidateField(field, Values{"street_address": strings.Repeat("a", 256)}); msg == "" {
		t.Fatal("overlong address must fail")
	}
}

func TestValidateFieldClinicQuantity(t *testing.T) {
	field := fieldByName(t, ClinicFields(), "quantity")

	if msg := ValidateField(field, Values{"quantity": "25"}); msg != "" {
		t.Fatalf("expected 25 valid, got %q", msg)
	}
	if msg := ValidateField(field, Values{"quantity": "99999"}); msg != "" {
		t.Fatalf("expected 99999 valid, got %q", msg)
	}

	cases := map[string]string{
		"abc": "Quantity (Number of Kits) must be a valid number.",
		"-3":  "Quantity (Number of Kits) cannot be negative.",
		"24":  "Quantity (Number of Kits) cannot be less than 25.",
		"0":   "Quantity (Number of Kits) cannot be less than 25.",
	}
	for value, want := range cases {
		if got := ValidateField(field, Values{"quantity": value}); got != want {
			t.Fatalf("quantity %q: got %q, want %q", value, got, want)
		}
	}

	// Six digits trip the length cap before the numeric range check.
	if msg := ValidateField(field, Values{"quantity": "123456"}); !strings.Contains(msg, "cannot exceed 5 characters") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestValidateClinicIDRequiredness(t *testing.T) {
	field := fieldByName(t, ClinicFields(), "clinic_id")

	clinic := Values{FieldType: TypeClinic, "clinic_id": ""}
	if msg := ValidateField(field, clinic); msg != "Clinic ID is required." {
		t.Fatalf("unexpected message: %q", msg)
	}

	customer := Values{FieldType: TypeCustomer, "clinic_id": ""}
	if msg := ValidateField(field, customer); msg != "" {
		t.Fatalf("clinic_id must be optional for customers, got %q", msg)
	}

	clinic["clinic_id"] = "CL-1"
	if msg := ValidateField(field, clinic); msg == "" {
		t.Fatal("short clinic id must fail")
	}
	clinic["clinic_id"] = "CLINIC-0042"
	if msg := ValidateField(field, clinic); msg != "" {
		t.Fatalf("expected valid clinic id, got %q", msg)
	}
}

func TestValidateCollectsAllFieldErrors(t *testing.T) {
	values := NewCheckoutValues(TypeClinic)
	values["first_name"] = "Jordan"
	values["email"] = "bad-email"
	values["phone_number"] = "12345"

	errs := Validate(values, CheckoutFields(TypeClinic))

	if errs["email"] != "Please enter a valid email address." {
		t.Fatalf("unexpected email error: %q", errs["email"])
	}
	if errs["phone_number"] == "" {
		t.Fatal("expected phone error")
	}
	if errs["country"] == "" || errs["quantity"] == "" || errs["clinic_id"] == "" {
		t.Fatalf("expected required errors, got %v", errs)
	}
	if _, ok := errs["first_name"]; ok {
		t.Fatal("valid field must not appear in error map")
	}
	if _, ok := errs["last_name"]; ok {
		t.Fatal("optional empty field must not appear in error map")
	}
}

func TestValidateEmptyFormIsValidWhenNothingRequired(t *testing.T) {
	errs := Validate(Values{}, nil)
	if errs.HasErrors() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
