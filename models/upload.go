package models

// UploadedFile is a document received from the client. It only lives for the
// duration of the request that carried it.
type UploadedFile struct {
	Filename  string
	MediaType string
	Size      int64
	Data      []byte
}
