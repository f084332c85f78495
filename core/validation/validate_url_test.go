package validation

import (
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{"valid http URL", "http://127.0.0.1:1337/v1", false},
		{"valid https URL", "https://embeddings.example.com/v1", false},
		{"valid with port", "http://192.168.1.10:8080", false},
		{"surrounding whitespace", "  http://localhost:1337/v1  ", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"missing scheme", "localhost:1337/v1", true},
		{"wrong scheme", "ftp://files.example.com", true},
		{"scheme only", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.url)
			if tt.expectError && err == nil {
				t.Errorf("ValidateBaseURL(%q) = nil, want error", tt.url)
			}
			if !tt.expectError && err != nil {
				t.Errorf("ValidateBaseURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}
