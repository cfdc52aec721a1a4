package document

// mockCertificate is the canned school leaving certificate served when the
// certificate OCR service cannot be used.
var mockCertificate = map[string]any{
	"school_name":                "Government Higher Secondary School, Rampur",
	"last_class_attended":        "Class X",
	"certificate_number":         "SLC/2023/0457",
	"admission_number":           "4821",
	"student_name":               "Aarav Sharma",
	"father_name":                "Rajesh Sharma",
	"mother_name":                "Sunita Sharma",
	"date_of_birth":              "2007-08-14",
	"date_of_birth_in_words":     "Fourteenth August Two Thousand Seven",
	"nationality":                "Indian",
	"religion":                   "Hindu",
	"category":                   "General",
	"date_of_admission":          "2017-04-03",
	"class_at_admission":         "Class IV",
	"date_of_leaving":            "2023-05-31",
	"reason_for_leaving":         "Passed Class X",
	"board":                      "Central Board of Secondary Education",
	"examination_result":         "Passed",
	"subjects_studied":           []any{"English", "Hindi", "Mathematics", "Science", "Social Science"},
	"qualified_for_promotion":    "Yes, to Class XI",
	"fees_paid_up_to":            "May 2023",
	"total_working_days":         "220",
	"total_days_present":         "208",
	"ncc_scout_guide":            "Scout",
	"extracurricular_activities": "Football, Debate",
	"general_conduct":            "Good",
	"date_of_application":        "2023-06-01",
	"date_of_issue":              "2023-06-05",
	"remarks":                    "None",
}

// MockCertificate returns a fresh copy of the canned certificate record
func MockCertificate() map[string]any {
	out := make(map[string]any, len(mockCertificate))
	for k, v := range mockCertificate {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		out[k] = v
	}
	return out
}
