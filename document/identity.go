package document

// FieldMapping maps one upstream field onto the client-facing schema
type FieldMapping struct {
	Source  string
	Target  string
	Default string
}

// IdentityFieldMappings is the Aadhaar OCR schema. The upstream service uses
// the AADHAR spelling.
var IdentityFieldMappings = []FieldMapping{
	{Source: "AADHAR_NUMBER", Target: "aadhaar_number", Default: ""},
	{Source: "NAME", Target: "name", Default: ""},
	{Source: "GENDER", Target: "gender", Default: ""},
	{Source: "DOB", Target: "dob", Default: ""},
	{Source: "ADDRESS", Target: "address", Default: ""},
}

// RemapFields builds the target object described by mappings. Every target key
// is present in the result; missing, null or empty source values take the default.
func RemapFields(source map[string]any, mappings []FieldMapping) map[string]any {
	out := make(map[string]any, len(mappings))
	for _, m := range mappings {
		value, ok := StringValue(source[m.Source])
		if !ok || value == "" {
			value = m.Default
		}
		out[m.Target] = value
	}
	return out
}

// RemapIdentity turns the identity OCR "data" object into the lowercase schema
func RemapIdentity(data map[string]any) map[string]any {
	return RemapFields(data, IdentityFieldMappings)
}
