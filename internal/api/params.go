package api

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"time"

	"github.com/dayboardhq/dayboard/internal/apperrors"
)

// intParam parses an optional integer query parameter. Empty means zero,
// which the wrappers treat as "use the default page size".
func intParam(q url.Values, key string) (int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// timeParam parses an optional RFC 3339 query parameter. Empty means the
// zero time, which the wrappers treat as "unbounded".
func timeParam(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(fmt.Sprintf("%s must be an RFC 3339 timestamp", key))
	}
	return t, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(q url.Values, key string, fallback bool) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.Validation(fmt.Sprintf("%s must be a boolean", key))
	}
	return b, nil
}

// validateEmails rejects malformed addresses before they reach the
// provider, turning a would-be 502 into a 400 the frontend can act on.
func validateEmails(field string, addrs []string) error {
	for _, addr := range addrs {
		if _, err := mail.ParseAddress(addr); err != nil {
			return apperrors.Validation(fmt.Sprintf("%s contains an invalid email address", field))
		}
	}
	return nil
}
