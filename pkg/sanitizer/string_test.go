package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims edges", "  Hotel Wawel  ", "Hotel Wawel"},
		{"collapses inner whitespace", "Anna \t Kowalska", "Anna Kowalska"},
		{"empty", "", ""},
		{"only whitespace", "   \t\n ", ""},
		{"already clean", "Grand Hotel", "Grand Hotel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimAndNormalizeIdempotent(t *testing.T) {
	input := "  Anna   Kowalska  "
	once := TrimAndNormalize(input)
	twice := TrimAndNormalize(once)
	if once != twice {
		t.Errorf("not idempotent: %q vs %q", once, twice)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName(" Jan   Nowak "); got != "Jan Nowak" {
		t.Errorf("NormalizeName = %q, want %q", got, "Jan Nowak")
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Anna.Kowalska@Example.COM ", "anna.kowalska@example.com"},
		{"guest@hotel.pl", "guest@hotel.pl"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeCityCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"krk", "KRK"},
		{" waw ", "WAW"},
		{"GDN", "GDN"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCityCode(tt.input); got != tt.want {
			t.Errorf("NormalizeCityCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
