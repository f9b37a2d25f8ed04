package utils

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain ascii", "report.pdf", "report.pdf"},
		{"empty", "", ""},
		{"spaces kept", "quarterly report.pdf", "quarterly report.pdf"},
		{"accents folded", "résumé.pdf", "resume.pdf"},
		{"mixed accents", "São Paulo Überblick.mp4", "Sao Paulo Uberblick.mp4"},
		{"cedilla and tilde", "Français señor.doc", "Francais senor.doc"},
		{"non latin becomes dash", "日本語.txt", "---.txt"},
		{"control characters become dash", "evil\nname.txt", "evil-name.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
