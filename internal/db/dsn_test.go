package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  ", ""},
		{"url unchanged", "postgres://u:p@h:5432/d", "postgres://u:p@h:5432/d"},
		{"quoted kv gets sslmode", `"host=h  user=u dbname=d"`, "host=h user=u dbname=d sslmode=disable"},
		{"kv keeps sslmode", "host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"not a dsn", "whatever", "whatever"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDSN(tt.in); got != tt.want {
				t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=rentals password=secret dbname=rentals sslmode=disable")
	want := "postgres://rentals:secret@db:5432/rentals?sslmode=disable"
	if got != want {
		t.Errorf("ToURLDSN() = %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Errorf("incomplete DSN should be unchanged, got %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=h password=secret dbname=d"); got != "host=h password=*** dbname=d" {
		t.Errorf("MaskDSN(kv) = %q", got)
	}
	if got := MaskDSN("postgres://u:secret@h/d"); got != "postgres://u:xxxxx@h/d" {
		t.Errorf("MaskDSN(url) = %q", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN(""); got != ":memory:?_foreign_keys=on&_busy_timeout=5000" {
		t.Errorf("SQLiteDSN(\"\") = %q", got)
	}
}
