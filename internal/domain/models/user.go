package models

import (
	"errors"
	"fmt"
	"strings"
)

// UserIDMaxLen bounds user ids accepted from HTTP, Kafka and the job queue.
const UserIDMaxLen = 64

// userIDForbidden are the cache key separator and the Redis glob metacharacters.
// User ids become key segments and invalidation patterns.
const userIDForbidden = `*?[]\:`

var ErrInvalidUserID = errors.New("invalid user id")

// ValidateUserID rejects ids that are empty, too long or could widen a key pattern.
func ValidateUserID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	case len(id) > UserIDMaxLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUserID, UserIDMaxLen)
	case strings.ContainsAny(id, userIDForbidden):
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidUserID, id, userIDForbidden)
	}
	return nil
}
