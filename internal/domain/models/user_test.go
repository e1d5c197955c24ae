package models

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	for _, id := range []string{"u1", "alice", "shop-42_eu", "a.b@c"} {
		if err := ValidateUserID(id); err != nil {
			t.Fatalf("ValidateUserID(%q) = %v", id, err)
		}
	}
	bad := []string{"", "*", "a:b", "a*", "a?", "[ab]", `a\b`, strings.Repeat("x", UserIDMaxLen+1)}
	for _, id := range bad {
		if err := ValidateUserID(id); !errors.Is(err, ErrInvalidUserID) {
			t.Fatalf("ValidateUserID(%q) = %v, want ErrInvalidUserID", id, err)
		}
	}
}
