package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GoVersion != runtime.Version() {
		t.Errorf("Get() = %+v", info)
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("Platform = %q, want %q", info.Platform, want)
	}
	if s := info.String(); !strings.HasPrefix(s, Version+" (") || !strings.Contains(s, info.Platform) {
		t.Errorf("String() = %q", s)
	}
}

func TestUserAgent(t *testing.T) {
	platform := runtime.GOOS + "/" + runtime.GOARCH
	tests := []struct {
		component string
		want      string
	}{
		{"cycle", "sevenseg-cycle/" + Version + " (" + platform + ")"},
		{"", "sevenseg/" + Version + " (" + platform + ")"},
		{"  ", "sevenseg/" + Version + " (" + platform + ")"},
	}
	for _, tt := range tests {
		if got := UserAgent(tt.component); got != tt.want {
			t.Errorf("UserAgent(%q) = %q, want %q", tt.component, got, tt.want)
		}
	}
}
