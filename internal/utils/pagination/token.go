package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const dateFormat = time.DateOnly

// EncodeDateToken creates a URL-safe token pointing just past the given work
// date in an employee's history. The owner is embedded so a token cannot be
// replayed against another employee's history.
func EncodeDateToken(ownerID string, date time.Time) string {
	tokenStr := fmt.Sprintf("%s|%s", date.UTC().Format(dateFormat), ownerID)
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeDateToken parses a token produced by EncodeDateToken for ownerID.
func DecodeDateToken(ownerID string, token string) (time.Time, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid pagination token format (split)")
	}
	if parts[1] != ownerID {
		return time.Time{}, fmt.Errorf("pagination token belongs to a different owner")
	}

	date, err := time.Parse(dateFormat, parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (date parse): %w", err)
	}
	return date, nil
}
