package types

import "github.com/google/uuid"

// NewDocumentID generates a UUIDv7 document identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.Must(uuid.NewV7()).String())
}

// ParseDocumentID validates and converts a string to DocumentID.
// Rejects malformed UUIDs so they never reach a query.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return DocumentID(u.String()), nil
}
