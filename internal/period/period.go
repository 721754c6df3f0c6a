package period

import (
	"fmt"
	"time"
)

// Month is a discrete calendar month. All arithmetic is label arithmetic
// (year/month increments), never day-offset arithmetic, so it cannot drift
// across 28..31-day months.
type Month struct {
	Year int
	Mon  time.Month
}

const label = "2006-01"

func Parse(s string) (Month, error) {
	t, err := time.Parse(label, s)
	if err != nil {
		return Month{}, fmt.Errorf("bad month label %q: %w", s, err)
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

func Current(now time.Time) Month {
	return Month{Year: now.Year(), Mon: now.Month()}
}

func (m Month) String() string {
	return m.FirstDay().Format(label)
}

// Add returns the month n months after m. time.Date normalizes
// out-of-range month values, so December+1 rolls the year.
func (m Month) Add(n int) Month {
	t := time.Date(m.Year, m.Mon+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Mon: t.Month()}
}

func (m Month) Next() Month { return m.Add(1) }

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Mon < o.Mon)
}

func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay is the final calendar day of the month (day 0 of the next month).
func (m Month) LastDay() time.Time {
	return time.Date(m.Year, m.Mon+1, 0, 0, 0, 0, 0, time.UTC)
}

// NextPayable is the first month not yet covered: the month after the last
// confirmed one, or the current month when nothing is confirmed yet.
func NextPayable(last *Month, now time.Time) Month {
	if last == nil {
		return Current(now)
	}
	return last.Next()
}

// Span pairs a month with its first/last calendar day for display.
type Span struct {
	Month Month
	From  time.Time
	To    time.Time
}

func (s Span) Display() string {
	return s.From.Format("02.01.2006") + "-" + s.To.Format("02.01.2006")
}

// Enumerate returns count consecutive months starting at start.
func Enumerate(start Month, count int) []Span {
	spans := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		m := start.Add(i)
		spans = append(spans, Span{Month: m, From: m.FirstDay(), To: m.LastDay()})
	}
	return spans
}

// Labels is Enumerate reduced to the month labels.
func Labels(start Month, count int) []string {
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, start.Add(i).String())
	}
	return out
}
