package importer

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/03/1990", time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"1/2/2021", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021-02-01", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{" 15/03/1990 ", time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC), true},
		// Serial 44197 is 2021-01-01 in the 1900 date system.
		{"44197", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"31/02/2021", time.Time{}, false},
		// Numbers outside the 1900..9999 serial range are not dates.
		{"99999999", time.Time{}, false},
		{"-99999999", time.Time{}, false},
		{"0", time.Time{}, false},
		{"2958466", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		// Wall clock 10:30 at UTC-3 is 13:30 UTC.
		{"15/03/2021 10:30:00", time.Date(2021, 3, 15, 13, 30, 0, 0, time.UTC), true},
		{"15/03/2021 10:30", time.Date(2021, 3, 15, 13, 30, 0, 0, time.UTC), true},
		// Midnight crossing: 22:00 local lands on the next UTC day.
		{"31/12/2020 22:00:00", time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC), true},
		// Date-only cells become local midnight, i.e. 03:00 UTC.
		{"15/03/2021", time.Date(2021, 3, 15, 3, 0, 0, 0, time.UTC), true},
		// Serial 44197.4375 is 2021-01-01 10:30 wall clock.
		{"44197.4375", time.Date(2021, 1, 1, 13, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"soon", time.Time{}, false},
		{"99999999", time.Time{}, false},
		{"-1.5", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDateTime(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDateTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDateTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if ok && got.Location() != time.UTC {
			t.Errorf("ParseDateTime(%q) location = %v, want UTC", tt.in, got.Location())
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"(48) 99999-1234", "48999991234"},
		{"+55 48 3222.0000", "554832220000"},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeClassification(t *testing.T) {
	tests := []struct{ in, want string }{
		{"QUENTE", "Quente"},
		{"  frio  ", "Frio"},
		{"Morno", "Morno"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeClassification(tt.in); got != tt.want {
			t.Errorf("NormalizeClassification(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToNumeric(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"R$ 1.234,56", 1234.56, true},
		{"1234.56", 1234.56, true},
		{"0,50", 0.5, true},
		{"1500", 1500, true},
		{"-12,30", -12.3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3,4,5", 0, false},
	}

	for _, tt := range tests {
		got := ToNumeric(tt.in)
		if got.Valid != tt.valid {
			t.Errorf("ToNumeric(%q) valid = %v, want %v", tt.in, got.Valid, tt.valid)
			continue
		}
		if !tt.valid {
			continue
		}
		f, err := got.Float64Value()
		if err != nil {
			t.Errorf("ToNumeric(%q).Float64Value() error = %v", tt.in, err)
			continue
		}
		if f.Float64 != tt.want {
			t.Errorf("ToNumeric(%q) = %v, want %v", tt.in, f.Float64, tt.want)
		}
	}
}

func TestNormalizeVendorName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Crédito  Fácil LTDA", "credito facil ltda"},
		{"BANCO PAN", "banco pan"},
		{"São João", "sao joao"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeVendorName(tt.in); got != tt.want {
			t.Errorf("NormalizeVendorName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeVendorNameIdempotent(t *testing.T) {
	in := "Crédito Fácil"
	once := NormalizeVendorName(in)
	if twice := NormalizeVendorName(once); twice != once {
		t.Errorf("NormalizeVendorName not idempotent: %q -> %q", once, twice)
	}
}
