package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Cursor is the decoded page token: the sort key of the last row returned.
// Tokens are opaque to clients; the wire form is base64("RFC3339Nano|docID").
type Cursor struct {
	At    time.Time
	DocID string
}

// IsZero reports whether the cursor carries no position.
func (c Cursor) IsZero() bool {
	return c.At.IsZero() && c.DocID == ""
}

// EncodeToken serialises the cursor into a base64 URL-safe page token.
func EncodeToken(cursor Cursor) string {
	if cursor.IsZero() {
		return ""
	}
	payload := fmt.Sprintf("%s|%s", cursor.At.UTC().Format(time.RFC3339Nano), cursor.DocID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodeToken parses the page token produced by EncodeToken back into a cursor.
func DecodeToken(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Cursor{}, fmt.Errorf("%w: malformed token", ErrInvalidPageToken)
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return Cursor{At: at, DocID: parts[1]}, nil
}
