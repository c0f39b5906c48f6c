package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func date(y int, m time.Month, d int) datatypes.Date {
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestDecimalValidators(t *testing.T) {
	v := Violations{}
	NonNegativeDecimal("rent", decimal.NewFromInt(-1), v)
	NonNegativeDecimal("charges", decimal.Zero, v)
	PositiveDecimal("size", decimal.Zero, v)
	RangeDecimal("pct", decimal.NewFromInt(101), decimal.Zero, decimal.NewFromInt(100), v)
	RangeDecimal("pct_ok", decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100), v)

	want := map[string]string{"rent": "must_not_be_negative", "size": "must_be_positive", "pct": "out_of_range"}
	if len(v) != len(want) {
		t.Fatalf("violations = %v, want %v", v, want)
	}
	for k, msg := range want {
		if v[k] != msg {
			t.Errorf("v[%q] = %q, want %q", k, v[k], msg)
		}
	}
}

func TestDateOrder(t *testing.T) {
	v := Violations{}
	end := date(2024, 1, 1)
	DateOrder("end_date", date(2024, 1, 1), &end, v)
	DateOrder("end_date", date(2024, 1, 1), nil, v)
	if !v.Empty() {
		t.Fatalf("unexpected violations: %v", v)
	}
	early := date(2023, 12, 31)
	DateOrder("end_date", date(2024, 1, 1), &early, v)
	if v["end_date"] != "before_start_date" {
		t.Errorf("end_date = %q, want before_start_date", v["end_date"])
	}
}

func TestDateOrderIgnoresClockAndZone(t *testing.T) {
	v := Violations{}
	paris := time.FixedZone("CET", 3600)
	start := datatypes.Date(time.Date(2024, 3, 10, 23, 30, 0, 0, paris))
	end := datatypes.Date(time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC))
	DateOrder("end_date", start, &end, v)
	if !v.Empty() {
		t.Fatalf("same calendar day rejected: %v", v)
	}
}

func TestAddKeepsFirst(t *testing.T) {
	v := Violations{}
	Required("name", " ", v)
	v.Add("name", "too_long")
	if v["name"] != "required" {
		t.Errorf("name = %q, want required", v["name"])
	}
}

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"oneof=draft active"`
	Name   string `validate:"max=3"`
}

func TestStruct(t *testing.T) {
	v := Violations{}
	if err := Struct(sample{Email: "nope", Status: "x", Name: "abcd"}, v); err != nil {
		t.Fatalf("Struct() error = %v", err)
	}
	want := map[string]string{"email": "invalid_email", "status": "invalid_choice", "Name": "too_long"}
	for k, msg := range want {
		if v[k] != msg {
			t.Errorf("v[%q] = %q, want %q", k, v[k], msg)
		}
	}

	v = Violations{}
	if err := Struct(sample{Email: "a@b.co", Status: "active", Name: "ab"}, v); err != nil || !v.Empty() {
		t.Fatalf("valid struct: err=%v violations=%v", err, v)
	}
}
