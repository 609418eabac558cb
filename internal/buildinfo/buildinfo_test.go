package buildinfo

import "testing"

func TestShort(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	tests := []struct {
		version, commit, date string
		short, long           string
	}{
		{"dev", "unknown", "unknown", "dev", "dev"},
		{"v0.1.0", "abc", "2026-01-02", "v0.1.0", "v0.1.0 (2026-01-02)"},
		{"dev", "0123456789abcdef", "", "0123456789ab", "0123456789ab"},
	}
	for _, tt := range tests {
		Version, Commit, Date = tt.version, tt.commit, tt.date
		if got := Short(); got != tt.short {
			t.Fatalf("Short() = %q, want %q", got, tt.short)
		}
		if got := Long(); got != tt.long {
			t.Fatalf("Long() = %q, want %q", got, tt.long)
		}
	}
}
