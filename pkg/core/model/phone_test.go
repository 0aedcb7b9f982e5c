package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhoneE164(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare ten digits", "7025551842", "+17025551842", true},
		{"formatted", "(702) 555-1842", "+17025551842", true},
		{"with country code", "1-702-555-1842", "+17025551842", true},
		{"e164 already", "+17025551842", "+17025551842", true},
		{"too short", "555-1842", "", false},
		{"eleven digits no leading one", "27025551842", "", false},
		{"empty", "", "", false},
		{"letters only", "call me", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhoneE164(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrettyPhone(t *testing.T) {
	assert.Equal(t, "(702) 555-1842", PrettyPhone("+17025551842"))
	assert.Equal(t, "(702) 555-1842", PrettyPhone("7025551842"))
	assert.Equal(t, "(702) 555", PrettyPhone("702555"))
	assert.Equal(t, "702", PrettyPhone("702"))
	assert.Equal(t, "", PrettyPhone(""))
}
