package values

import (
	"strings"
	"time"
)

// Date is a calendar date and time without a zone. The empty date is
// 0001-01-01 00:00:00.
type Date struct {
	t time.Time
}

var EmptyDate = Date{}

func NewDate(t time.Time) Date {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return Date{t: time.Date(y, mo, d, h, mi, s, 0, time.UTC)}
}

// DateOf builds a date from components; out of range components are an error.
func DateOf(year, month, day, hour, minute, second int) (Date, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return EmptyDate, false
	}
	return Date{t: t}, true
}

// ParseDate accepts "ГГГГММДД" or "ГГГГММДДччммсс", separators ignored.
func ParseDate(s string) (Date, bool) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	ds := digits.String()
	if len(ds) != 8 && len(ds) != 12 && len(ds) != 14 {
		return EmptyDate, false
	}
	if strings.Trim(ds, "0") == "" {
		return EmptyDate, true
	}
	num := func(from, to int) int {
		n := 0
		for _, c := range ds[from:to] {
			n = n*10 + int(c-'0')
		}
		return n
	}
	var h, mi, sec int
	if len(ds) >= 12 {
		h, mi = num(8, 10), num(10, 12)
	}
	if len(ds) == 14 {
		sec = num(12, 14)
	}
	return DateOf(num(0, 4), num(4, 6), num(6, 8), h, mi, sec)
}

func (Date) DataType() DataType { return TypeDate }
func (Date) TypeName() string   { return TypeDate.String() }

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.t.Format("02.01.2006 15:04:05")
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsEmpty() bool   { return d.t.IsZero() }

// AddSeconds shifts the date by a whole number of seconds.
func (d Date) AddSeconds(sec int64) Date {
	return Date{t: time.Unix(d.t.Unix()+sec, 0).UTC()}
}

// Sub is the difference in seconds.
func (d Date) Sub(o Date) int64 {
	return d.t.Unix() - o.t.Unix()
}

func (d Date) Cmp(o Date) int {
	return d.t.Compare(o.t)
}
