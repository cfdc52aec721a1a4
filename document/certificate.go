package document

const (
	CertificateStatusSuccess = "success"

	certificateNestedField = "all_extracted_data"
)

// certificateTopLevelFields are lifted out of the upstream "data" object next
// to the nested extraction results.
var certificateTopLevelFields = []string{"school_name", "last_class_attended"}

// IsCertificateSuccess reports whether body is a well formed certificate OCR
// response, that is an object whose status equals "success".
func IsCertificateSuccess(body any) bool {
	obj := AsObject(body)
	if obj == nil {
		return false
	}
	status, ok := obj["status"].(string)
	return ok && status == CertificateStatusSuccess
}

// FlattenCertificate merges the top level certificate fields with every entry
// of the nested all_extracted_data map. Nested entries win on collision.
func FlattenCertificate(data map[string]any) map[string]any {
	nested := AsObject(data[certificateNestedField])

	out := make(map[string]any, len(certificateTopLevelFields)+len(nested))
	for _, key := range certificateTopLevelFields {
		if v, ok := data[key]; ok {
			out[key] = v
		}
	}
	for k, v := range nested {
		out[k] = v
	}
	return out
}
