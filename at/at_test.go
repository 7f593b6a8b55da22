package at_test

import (
	"testing"

	"github.com/dsiganos/blutil/at"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		name     string
		tail     string
		expected string
	}{
		{
			name:     "Plain command gets a separating space",
			tail:     "Z",
			expected: "AT Z\r",
		},
		{
			name:     "Extended command keeps its marker unseparated",
			tail:     `+DIR`,
			expected: "AT+DIR\r",
		},
		{
			name:     "File operation with argument",
			tail:     `+DEL "myprog"`,
			expected: "AT+DEL \"myprog\"\r",
		},
		{
			name:     "Empty probe command",
			tail:     "",
			expected: "AT \r",
		},
		{
			name:     "Read parameter command",
			tail:     "I 0",
			expected: "AT I 0\r",
		},
		{
			name:     "Factory reset with argument",
			tail:     "&F 1",
			expected: "AT &F 1\r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := at.Frame(tt.tail)
			if string(got) != tt.expected {
				t.Errorf("Frame(%q) = %q, want %q", tt.tail, got, tt.expected)
			}
		})
	}
}
