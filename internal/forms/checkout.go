package forms

// Order discriminator values carried in the "type" field.
const (
	TypeCustomer = "customer"
	TypeClinic   = "clinic"
)

// FieldType is the name of the discriminator field.
const FieldType = "type"

// shippingSources maps each billing address field to the shipping field it
// feeds while "shipping same as billing" is on.
var shippingSources = map[string]string{
	"country":        "shipping_country",
	"street_address": "shipping_address",
	"town_city":      "shipping_town_city",
	"region":         "shipping_region",
	"postcode":       "shipping_postcode",
}

func clinicIDRequired(values Values) bool {
	return values.Get(FieldType) == TypeClinic
}

// BillingFields returns the descriptors shown to every purchaser.
func BillingFields() []Field {
	return []Field{
		{
			Name:     FieldType,
			Label:    "Customer Type",
			Type:     InputRadio,
			Required: true,
		},
		{
			Name:        "first_name",
			Label:       "First Name",
			Type:        InputText,
			Placeholder: "Enter your first name",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "last_name",
			Label:       "Last Name",
			Type:        InputText,
			Placeholder: "Enter your last name",
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "email",
			Label:       "Email",
			Type:        InputEmail,
			Placeholder: "Enter your email",
			Required:    true,
			Rules:       Rules{Kind: RuleEmail, MaxLength: 255},
		},
		{
			Name:        "phone_number",
			Label:       "Phone Number",
			Type:        InputText,
			Placeholder: "Enter your phone number",
			Required:    true,
			Rules:       Rules{Kind: RulePhoneNumber, MinLength: 10, MaxLength: 15},
		},
		{
			Name:        "country",
			Label:       "Country",
			Type:        InputText,
			Placeholder: "Enter your country",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "town_city",
			Label:       "Town/City",
			Type:        InputText,
			Placeholder: "Enter your town/city",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 5, MaxLength: 100},
		},
		{
			Name:        "region",
			Label:       "Region",
			Type:        InputText,
			Placeholder: "Enter your region",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 5, MaxLength: 100},
		},
		{
			Name:        "postcode",
			Label:       "Postcode",
			Type:        InputText,
			Placeholder: "Enter your postcode",
			Required:    true,
			Rules:       Rules{Kind: RuleAlphanumericWithSpace, MinLength: 3, MaxLength: 20},
		},
		{
			Name:        "street_address",
			Label:       "Street Address",
			Type:        InputTextarea,
			Placeholder: "Enter your street address",
			Required:    true,
			Rules:       Rules{Kind: RuleTextarea, MinLength: 5, MaxLength: 255},
		},
	}
}

// ClinicFields returns the descriptors that apply only to clinic orders.
// The clinic_id requiredness is derived from the discriminator value rather
// than fixed at construction time.
func ClinicFields() []Field {
	return []Field{
		{
			Name:        "quantity",
			Label:       "Quantity (Number of Kits)",
			Type:        InputText,
			Placeholder: "Enter number of kits",
			Required:    true,
			Rules:       Rules{Kind: RuleClinicOrderQuantity, MaxLength: 5},
		},
		{
			Name:         "clinic_id",
			Label:        "Clinic ID",
			Type:         InputTextarea,
			Placeholder:  "Enter your clinic ID",
			RequiredFunc: clinicIDRequired,
			Rules:        Rules{Kind: RuleTextarea, MinLength: 5, MaxLength: 100},
		},
	}
}

// ShippingFields returns the delivery address descriptors.
func ShippingFields() []Field {
	return []Field{
		{
			Name:        "shipping_country",
			Label:       "Country",
			Type:        InputText,
			Placeholder: "Enter your country",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "shipping_town_city",
			Label:       "Town/City",
			Type:        InputText,
			Placeholder: "Enter your town/city",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 5, MaxLength: 100},
		},
		{
			Name:        "shipping_region",
			Label:       "Region",
			Type:        InputText,
			Placeholder: "Enter your region",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 5, MaxLength: 100},
		},
		{
			Name:        "shipping_postcode",
			Label:       "Postcode",
			Type:        InputText,
			Placeholder: "Enter your postcode",
			Required:    true,
			Rules:       Rules{Kind: RuleAlphanumericWithSpace, MinLength: 3, MaxLength: 20},
		},
		{
			Name:        "shipping_address",
			Label:       "Shipping Address",
			Type:        InputTextarea,
			Placeholder: "Enter your shipping address",
			Required:    true,
			Rules:       Rules{Kind: RuleTextarea, MinLength: 5, MaxLength: 255},
		},
	}
}

// CheckoutFields returns the union of field descriptors that are active for
// the given discriminator: billing and shipping always, clinic fields only
// for clinic orders.
func CheckoutFields(orderType string) []Field {
	fields := BillingFields()
	if orderType == TypeClinic {
		fields = append(fields, ClinicFields()...)
	}
	return append(fields, ShippingFields()...)
}

// NewCheckoutValues seeds a fresh form state for the discriminator. The
// quantity defaults to one kit for retail customers; clinics must choose.
func NewCheckoutValues(orderType string) Values {
	values := Values{
		FieldType:            orderType,
		"first_name":         "",
		"last_name":          "",
		"email":              "",
		"phone_number":       "",
		"country":            "",
		"street_address":     "",
		"town_city":          "",
		"region":             "",
		"postcode":           "",
		"quantity":           "",
		"clinic_id":          "",
		"shipping_country":   "",
		"shipping_address":   "",
		"shipping_town_city": "",
		"shipping_region":    "",
		"shipping_postcode":  "",
	}
	if orderType == TypeCustomer {
		values["quantity"] = "1"
	}
	return values
}

// ResetForType reseeds values and clears errors after a discriminator
// switch, preserving only the new discriminator itself.
func ResetForType(values Values, errs Errors, orderType string) {
	fresh := NewCheckoutValues(orderType)
	for name, value := range fresh {
		values[name] = value
	}
	for name := range errs {
		errs[name] = ""
	}
}

// SyncShipping applies the "shipping same as billing" toggle. While on, the
// five billing address fields are copied into their shipping counterparts and
// any shipping errors are cleared; call it again after a billing change to
// keep the copies current. Turning the toggle off blanks the five shipping
// fields.
func SyncShipping(values Values, errs Errors, on bool) {
	for source, target := range shippingSources {
		if on {
			values[target] = values.Get(source)
			if errs != nil {
				errs[target] = ""
			}
		} else {
			values[target] = ""
		}
	}
}

// IsFormValid is the advisory submit guard: every active required field must
// be non-empty and no field may carry an error. Submission revalidates from
// scratch regardless.
func IsFormValid(values Values, errs Errors, orderType string) bool {
	if errs.HasErrors() {
		return false
	}
	for _, field := range CheckoutFields(orderType) {
		if field.IsRequired(values) && values.Get(field.Name) == "" {
			return false
		}
	}
	return true
}
