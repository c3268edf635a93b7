package beatport

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "C Major", expected: "Cmaj"},
		{input: "A Minor", expected: "Amin"},
		{input: "F# Minor", expected: "F#min"},
		{input: "Eb Major", expected: "D#maj"},
		{input: "Db Minor", expected: "C#min"},
		{input: "Gb Major", expected: "F#maj"},
		{input: "Ab Minor", expected: "G#min"},
		{input: "Bb Major", expected: "A#maj"},
		{input: "Cmajor", expected: ""},
		{input: "", expected: ""},
		{input: "C Sharp Major", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeKey(tt.input); got != tt.expected {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
