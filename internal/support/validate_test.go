package support

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last@example.com", true},
		{"user-name@sub.example.co.uk", true},
		{"user_1@example.io", true},
		{"bad@@x", false},
		{"@example.com", false},
		{"user@", false},
		{"user@example", false},
		{".user@example.com", false},
		{"user.@example.com", false},
		{"user@example.com.", false},
		{"plain text", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.email), "ValidateEmail(%q)", tt.email)
		})
	}
}
