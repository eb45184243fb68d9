package forms

import "testing"

func TestNewCheckoutValues(t *testing.T) {
	customer := NewCheckoutValues(TypeCustomer)
	if got := customer.Get(FieldType); got != TypeCustomer {
		t.Fatalf("unexpected type: %q", got)
	}
	if got := customer.Get("quantity"); got != "1" {
		t.Fatalf("customer quantity must default to 1, got %q", got)
	}

	clinic := NewCheckoutValues(TypeClinic)
	if got := clinic.Get("quantity"); got != "" {
		t.Fatalf("clinic quantity must start empty, got %q", got)
	}
	if len(customer) != len(clinic) {
		t.Fatalf("both variants must seed the same keys: %d vs %d", len(customer), len(clinic))
	}
}

func TestCheckoutFieldsUnion(t *testing.T) {
	customer := CheckoutFields(TypeCustomer)
	clinic := CheckoutFields(TypeClinic)

	if len(clinic) != len(customer)+2 {
		t.Fatalf("clinic form must add exactly quantity and clinic_id: %d vs %d", len(clinic), len(customer))
	}
	for _, field := range customer {
		if field.Name == "quantity" || field.Name == "clinic_id" {
			t.Fatalf("customer form must not carry clinic field %q", field.Name)
		}
	}
}

func TestSyncShippingCopiesBillingAddress(t *testing.T) {
	values := NewCheckoutValues(TypeCustomer)
	values["country"] = "New Zealand"
	values["street_address"] = "12 Queen Street"
	values["town_city"] = "Auckland"
	values["region"] = "Auckland Region"
	values["postcode"] = "1010"
	errs := Errors{"shipping_country": "Country is required."}

	SyncShipping(values, errs, true)

	want := map[string]string{
		"shipping_country":   "New Zealand",
		"shipping_address":   "12 Queen Street",
		"shipping_town_city": "Auckland",
		"shipping_region":    "Auckland Region",
		"shipping_postcode":  "1010",
	}
	for name, value := range want {
		if got := values.Get(name); got != value {
			t.Fatalf("%s: got %q, want %q", name, got, value)
		}
	}
	if errs["shipping_country"] != "" {
		t.Fatalf("copied field must have its error cleared, got %q", errs["shipping_country"])
	}

	// A later billing edit propagates on the next sync.
	values["town_city"] = "Wellington"
	SyncShipping(values, errs, true)
	if got := values.Get("shipping_town_city"); got != "Wellington" {
		t.Fatalf("billing edit must propagate, got %q", got)
	}
}

func TestSyncShippingOffBlanksTargets(t *testing.T) {
	values := NewCheckoutValues(TypeCustomer)
	values["country"] = "New Zealand"
	SyncShipping(values, nil, true)

	SyncShipping(values, nil, false)

	for _, target := range []string{
		"shipping_country", "shipping_address", "shipping_town_city",
		"shipping_region", "shipping_postcode",
	} {
		if got := values.Get(target); got != "" {
			t.Fatalf("%s must be blanked, got %q", target, got)
		}
	}
	if got := values.Get("country"); got != "New Zealand" {
		t.Fatalf("billing source must survive, got %q", got)
	}
}

func TestResetForTypeClearsStateAndErrors(t *testing.T) {
	values := NewCheckoutValues(TypeClinic)
	values["first_name"] = "Jordan"
	values["clinic_id"] = "CLINIC-0042"
	values["quantity"] = "30"
	errs := Errors{"clinic_id": "Clinic ID is required.", "email": "Please enter a valid email address."}

	ResetForType(values, errs, TypeCustomer)

	if got := values.Get(FieldType); got != TypeCustomer {
		t.Fatalf("unexpected type: %q", got)
	}
	if got := values.Get("first_name"); got != "" {
		t.Fatalf("field must be reseeded, got %q", got)
	}
	if got := values.Get("clinic_id"); got != "" {
		t.Fatalf("clinic_id must be blanked, got %q", got)
	}
	if got := values.Get("quantity"); got != "1" {
		t.Fatalf("customer quantity must reseed to 1, got %q", got)
	}
	if errs.HasErrors() {
		t.Fatalf("errors must be cleared, got %v", errs)
	}

	// After the switch, clinic_id no longer gates validity.
	field := fieldByName(t, ClinicFields(), "clinic_id")
	if field.IsRequired(values) {
		t.Fatal("clinic_id must be optional after switching to customer")
	}
	if msg := ValidateField(field, values); msg != "" {
		t.Fatalf("expected no error, got %q", msg)
	}
}

func TestIsFormValid(t *testing.T) {
	values := NewCheckoutValues(TypeCustomer)
	errs := make(Errors)

	if IsFormValid(values, errs, TypeCustomer) {
		t.Fatal("empty form must not be submittable")
	}

	values["first_name"] = "Jordan"
	values["email"] = "jordan@example.com"
	values["phone_number"] = "0211234567"
	values["country"] = "New Zealand"
	values["town_city"] = "Auckland"
	values["region"] = "Auckland Region"
	values["postcode"] = "1010"
	values["street_address"] = "12 Queen Street"
	SyncShipping(values, errs, true)

	if !IsFormValid(values, errs, TypeCustomer) {
		t.Fatalf("complete customer form must be submittable, errors %v", errs)
	}

	// The guard is advisory: a lingering error blocks submission even when
	// every required field is filled.
	errs["email"] = "Please enter a valid email address."
	if IsFormValid(values, errs, TypeCustomer) {
		t.Fatal("form with errors must not be submittable")
	}
	delete(errs, "email")

	// The same values are incomplete for a clinic order.
	values[FieldType] = TypeClinic
	if IsFormValid(values, errs, TypeClinic) {
		t.Fatal("clinic form without clinic_id and quantity must not be submittable")
	}
	values["quantity"] = "30"
	values["clinic_id"] = "CLINIC-0042"
	if !IsFormValid(values, errs, TypeClinic) {
		t.Fatal("complete clinic form must be submittable")
	}
}
