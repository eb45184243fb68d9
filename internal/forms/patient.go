package forms

// PatientFields returns the descriptors validated when a kit is registered
// to the person who will use it. Last name is optional; the kit may be
// registered by a parent or caregiver, but the patient must be an adult.
func PatientFields() []Field {
	return []Field{
		{
			Name:        "first_name",
			Label:       "First Name",
			Type:        InputText,
			Placeholder: "Enter the patient's first name",
			Required:    true,
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "last_name",
			Label:       "Last Name",
			Type:        InputText,
			Placeholder: "Enter the patient's last name",
			Rules:       Rules{Kind: RuleNameWithSpace, MinLength: 3, MaxLength: 50},
		},
		{
			Name:        "email",
			Label:       "Email",
			Type:        InputEmail,
			Placeholder: "Enter the patient's email",
			Required:    true,
			Rules:       Rules{Kind: RuleEmail, MaxLength: 255},
		},
		{
			Name:     "gender",
			Label:    "Gender",
			Type:     InputRadio,
			Required: true,
			Rules:    Rules{Kind: RuleGender},
		},
		{
			Name:        "age",
			Label:       "Age",
			Type:        InputText,
			Placeholder: "Enter the patient's age",
			Required:    true,
			Rules:       Rules{Kind: RulePatientAge, MaxLength: 3},
		},
	}
}
