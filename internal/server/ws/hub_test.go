package ws

import "testing"

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin header", "", []string{"https://app.example.com"}, true},
		{"empty allow list", "https://evil.example.com", nil, true},
		{"listed origin", "https://app.example.com", []string{"https://app.example.com"}, true},
		{"case insensitive", "https://APP.example.com", []string{"https://app.example.com"}, true},
		{"wildcard", "https://anywhere.example.com", []string{"*"}, true},
		{"unlisted origin", "https://evil.example.com", []string{"https://app.example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := originAllowed(tt.origin, tt.allowed); got != tt.want {
				t.Errorf("originAllowed(%q, %v) = %v, want %v",
					tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}
