package payment

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// MaxPeriodNumber bounds period numbers accepted from callers.
const MaxPeriodNumber = 100000

const secondsPerDay = 24 * 60 * 60

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The calendar date is read in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodContaining returns the period of the given frequency that contains date.
// Dates before the anchor resolve to periods with a sequence number below 1.
func PeriodContaining(date, anchor time.Time, frequency Frequency) (Period, error) {
	if !frequency.IsValid() {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}

	date = DateOf(date)
	anchor = DateOf(anchor)

	var offset int
	switch frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		offset = floorDiv(daysBetween(anchor, date), unitDays(frequency))
	case FrequencyMonthly:
		offset = monthOffset(anchor, date)
	}

	return periodAt(offset, anchor, frequency), nil
}

// PeriodByNumber returns the n-th period (1-based) counted from anchor.
func PeriodByNumber(n int, anchor time.Time, frequency Frequency) (Period, error) {
	if n <= 0 {
		return Period{}, fmt.Errorf("%w: period number must be positive, got %d", ErrInvalidPaymentPeriod, n)
	}
	if n > MaxPeriodNumber {
		return Period{}, fmt.Errorf("%w: period number must be at most %d, got %d", ErrInvalidPaymentPeriod, MaxPeriodNumber, n)
	}
	if !frequency.IsValid() {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}
	return periodAt(n-1, DateOf(anchor), frequency), nil
}

// RecentPeriods returns up to count periods that ended before the period containing now,
// most recent first. Periods before the anchor are never returned.
func RecentPeriods(count int, anchor time.Time, frequency Frequency, now time.Time) ([]Period, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidPaymentPeriod, count)
	}

	current, err := PeriodContaining(now, anchor, frequency)
	if err != nil {
		return nil, err
	}

	periods := make([]Period, 0, count)
	for n := current.SequenceNumber - 1; n >= 1 && len(periods) < count; n-- {
		periods = append(periods, periodAt(n-1, DateOf(anchor), frequency))
	}
	return periods, nil
}

// periodAt builds the period at a zero-based offset from anchor.
func periodAt(offset int, anchor time.Time, frequency Frequency) Period {
	var start, end time.Time
	switch frequency {
	case FrequencyMonthly:
		start = addMonthsClamped(anchor, offset)
		// End is the day before the next start so clamped month-ends never leave gaps.
		end = addMonthsClamped(anchor, offset+1).AddDate(0, 0, -1)
	default:
		unit := unitDays(frequency)
		start = anchor.AddDate(0, 0, offset*unit)
		end = start.AddDate(0, 0, unit-1)
	}

	return Period{
		StartDate:      start,
		EndDate:        end,
		Frequency:      frequency,
		SequenceNumber: offset + 1,
	}
}

// monthOffset finds k such that start(k) <= date < start(k+1).
func monthOffset(anchor, date time.Time) int {
	k := (date.Year()-anchor.Year())*12 + int(date.Month()) - int(anchor.Month())
	for addMonthsClamped(anchor, k).After(date) {
		k--
	}
	for !addMonthsClamped(anchor, k+1).After(date) {
		k++
	}
	return k
}

// addMonthsClamped shifts t by months, clamping the day to the end of the target month.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	year := y + floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)
	if last := daysIn(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func unitDays(frequency Frequency) int {
	if frequency == FrequencyBiweekly {
		return 14
	}
	return 7
}

// daysBetween expects both values at midnight UTC. Unix seconds avoid the
// ~292 year limit of time.Duration.
func daysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
