package firestore

import (
	"time"

	"github.com/theranostics-labs/portal-api/internal/platform/pagination"
)

// encodeCursor builds an opaque page token from the last row's sort key.
func encodeCursor(at time.Time, docID string) string {
	return pagination.EncodeToken(pagination.Cursor{At: at, DocID: docID})
}

func decodeCursor(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	return cursor.At, cursor.DocID, nil
}
