package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"regular email", "jane@example.com", "example.com"},
		{"gmail", "someone@gmail.com", "gmail.com"},
		{"no at sign", "invalid", "unknown"},
		{"empty", "", "unknown"},
		{"trailing at", "user@", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUserDomain(tt.email); got != tt.want {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestIntentDomain(t *testing.T) {
	tests := []struct {
		name   string
		intent string
		want   string
	}{
		{"email intent", "email.archive", "email"},
		{"calendar intent", "calendar.create", "calendar"},
		{"task intent", "task.complete", "task"},
		{"bare domain", "unknown", "unknown"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntentDomain(tt.intent); got != tt.want {
				t.Errorf("IntentDomain(%q) = %q, want %q", tt.intent, got, tt.want)
			}
		})
	}
}
