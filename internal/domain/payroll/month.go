package payroll

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month of a salary sheet. Timestamps are placed into months by
// their UTC calendar date.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(raw string) (Month, error) {
	parsed, err := time.Parse(monthLayout, strings.TrimSpace(raw))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	return Month{Year: parsed.Year(), Month: parsed.Month()}, nil
}

func MonthOf(t time.Time) Month {
	utc := t.UTC()
	return Month{Year: utc.Year(), Month: utc.Month()}
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Sub returns the number of calendar months from o to m.
func (m Month) Sub(o Month) int {
	return (m.Year-o.Year)*12 + int(m.Month) - int(o.Month)
}

func (m Month) Contains(t time.Time) bool {
	return MonthOf(t) == m
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
