package values

import (
	"errors"
	"fmt"
	"testing"
)

func num(t *testing.T, s string) Number {
	t.Helper()
	n, ok := ParseNumber(s)
	if !ok {
		t.Fatalf("ParseNumber(%q) failed", s)
	}
	return n
}

func TestNumberPresentation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "0"},
		{"0.000", "0"},
		{"100", "100"},
		{"1.50", "1.5"},
		{"-2.25", "-2.25"},
		{"  42  ", "42"},
		{"0.001", "0.001"},
	}
	for _, tt := range tests {
		if got := num(t, tt.in).String(); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "1e5", "abc", "1,5", "--1"} {
		if _, ok := ParseNumber(bad); ok {
			t.Errorf("ParseNumber(%q) should fail", bad)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value  string
		digits int
		mode   RoundMode
		want   string
	}{
		{"1.5", 0, RoundHalfAwayFromZero, "2"},
		{"2.5", 0, RoundHalfAwayFromZero, "3"},
		{"-1.5", 0, RoundHalfAwayFromZero, "-2"},
		{"1.5", 0, RoundHalfTowardZero, "1"},
		{"-1.5", 0, RoundHalfTowardZero, "-1"},
		{"1.51", 0, RoundHalfTowardZero, "2"},
		{"1.255", 2, RoundHalfAwayFromZero, "1.26"},
		{"1.255", 2, RoundHalfTowardZero, "1.25"},
		{"15", -1, RoundHalfAwayFromZero, "20"},
		{"15", -1, RoundHalfTowardZero, "10"},
		{"1234.5678", -2, RoundHalfAwayFromZero, "1200"},
		{"7", 3, RoundHalfAwayFromZero, "7"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d/%d", tt.value, tt.digits, tt.mode), func(t *testing.T) {
			got, err := num(t, tt.value).Round(tt.digits, tt.mode)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPowIsExactForIntegerExponents(t *testing.T) {
	got, err := NumberFromInt(2).Pow(NumberFromInt(100))
	if err != nil {
		t.Fatal(err)
	}
	if want := "1267650600228229401496703205376"; got.String() != want {
		t.Errorf("2^100 = %s, want %s", got, want)
	}
	got, err = num(t, "1.1").Pow(NumberFromInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "1.21" {
		t.Errorf("1.1^2 = %s", got)
	}
	got, err = NumberFromInt(5).Pow(Zero)
	if err != nil || got.String() != "1" {
		t.Errorf("5^0 = %s, %v", got, err)
	}
}

func TestArithmetic(t *testing.T) {
	d, _ := DateOf(2024, 1, 31, 0, 0, 0)
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b Value
		want string
	}{
		{"sum", Add, NumberFromInt(2), NumberFromInt(3), "5"},
		{"concat", Add, String("a"), NumberFromInt(1), "a1"},
		{"string to number", Add, NumberFromInt(1), String("2"), "3"},
		{"date shift", Add, d, NumberFromInt(86400), "01.02.2024 00:00:00"},
		{"date back", Sub, d, NumberFromInt(60), "30.01.2024 23:59:00"},
		{"date diff", Sub, d.AddSeconds(90), d, "90"},
		{"div", Div, NumberFromInt(10), NumberFromInt(4), "2.5"},
		{"mod", Mod, NumberFromInt(-7), NumberFromInt(3), "-1"},
		{"left assoc", Sub, NumberFromInt(-1), NumberFromInt(3), "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestDivideByZero(t *testing.T) {
	_, err := Div(NumberFromInt(1), Zero)
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if _, err := Add(Undefined, NumberFromInt(1)); err == nil {
		t.Error("Undefined + 1 should fail")
	}
}

func TestEqualsAndCompare(t *testing.T) {
	if !Equals(NumberFromInt(1), num(t, "1.00")) {
		t.Error("1 = 1.00")
	}
	if Equals(NumberFromInt(1), String("1")) {
		t.Error("values of different types are not equal")
	}
	if !Equals(Undefined, NewCell("x", Undefined)) {
		t.Error("cells compare by their value")
	}
	if !Equals(TypeValue{Name: "Массив"}, TypeValue{Name: "массив"}) {
		t.Error("type names compare case-insensitively")
	}
	if c, err := Compare(String("a"), String("b")); err != nil || c >= 0 {
		t.Errorf("a < b: %d %v", c, err)
	}
	if c, err := Compare(False, True); err != nil || c >= 0 {
		t.Errorf("Ложь < Истина: %d %v", c, err)
	}
	if _, err := Compare(NumberFromInt(1), String("1")); err == nil {
		t.Error("comparing a number and a string should fail")
	}
}

func TestConversions(t *testing.T) {
	for _, s := range []string{"Истина", "ИСТИНА", "true"} {
		if b, err := AsBoolean(String(s)); err != nil || !b {
			t.Errorf("AsBoolean(%q) = %v, %v", s, b, err)
		}
	}
	if b, err := AsBoolean(NumberFromInt(0)); err != nil || b {
		t.Errorf("AsBoolean(0) = %v, %v", b, err)
	}
	if _, err := AsBoolean(String("да")); err == nil {
		t.Error(`AsBoolean("да") should fail`)
	}
	if True.String() != "Да" || False.String() != "Нет" {
		t.Error("boolean presentation")
	}
	if Undefined.String() != "" || Null.String() != "" {
		t.Error("empty presentation")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"20240229", "29.02.2024 00:00:00", true},
		{"20240229123456", "29.02.2024 12:34:56", true},
		{"2024-02-29 12:34", "29.02.2024 12:34:00", true},
		{"00010101", "", true},
		{"20230229", "", false},
		{"2024", "", false},
	}
	for _, tt := range tests {
		d, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("%q: ok = %v", tt.in, ok)
			continue
		}
		if ok && d.String() != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, d.String(), tt.want)
		}
	}
}

func TestRuntimeErrorPosition(t *testing.T) {
	err := NewRuntimeError("boom")
	if err.Error() != "boom" {
		t.Errorf("got %q", err.Error())
	}
	err.SetPosition(ErrorPosition{ModuleName: "main", Line: 3, SourceLine: "А = 1/0;"})
	err.SetPosition(ErrorPosition{ModuleName: "other", Line: 9})
	if err.Position.ModuleName != "main" || err.Position.Line != 3 {
		t.Errorf("position overwritten: %+v", err.Position)
	}

	ext := AsRuntimeError(fmt.Errorf("disk full"))
	var ee *ExternalError
	if !errors.As(ext, &ee) {
		t.Error("foreign errors are wrapped as ExternalError")
	}
	if AsRuntimeError(fmt.Errorf("wrapped: %w", err)) != err {
		t.Error("AsRuntimeError must find a wrapped RuntimeError")
	}
}

func TestReferences(t *testing.T) {
	cell := NewCell("А", NumberFromInt(1))
	alias := Variable(cell)
	if err := alias.Set(String("x")); err != nil {
		t.Fatal(err)
	}
	if Raw(cell) != String("x") {
		t.Errorf("write through alias not visible: %v", Raw(cell))
	}
	nested := NewCell("Б", cell)
	if Raw(nested) != String("x") {
		t.Error("cells store raw values")
	}
}
