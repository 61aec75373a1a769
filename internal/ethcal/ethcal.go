// Package ethcal converts Gregorian dates to the Ethiopian calendar.
//
// The conversion places the Ethiopian new year on Gregorian September 11 in
// every year and gives the thirteenth month five days. Years in which the new
// year really falls on September 12 are off by one day, and the sixth day of a
// leap Pagume only appears through the month 13 overflow clamp.
package ethcal

import (
	"fmt"
	"time"
)

const (
	newYearMonth = time.September
	newYearDay   = 11

	monthDays    = 30
	yearOffset   = 7
	monthsInYear = 12
)

// Date is a day in the Ethiopian calendar. Month is 1..13.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// FromGregorian converts a Gregorian year, month and day.
func FromGregorian(year, month, day int) Date {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return convert(t)
}

// FromTime converts the calendar day of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return FromGregorian(y, int(m), d)
}

func convert(t time.Time) Date {
	y := t.Year()
	newYear := time.Date(y, newYearMonth, newYearDay, 0, 0, 0, 0, time.UTC)
	eYear := y - yearOffset
	if t.Before(newYear) {
		eYear = y - 1 - yearOffset
		newYear = time.Date(y-1, newYearMonth, newYearDay, 0, 0, 0, 0, time.UTC)
	}

	// Calendar days only; both values are UTC midnights.
	offset := int(t.Sub(newYear).Hours() / 24)

	for m := 1; m <= monthsInYear; m++ {
		if offset < monthDays {
			return Date{Year: eYear, Month: m, Day: offset + 1}
		}
		offset -= monthDays
	}
	// Anything left lands in Pagume, including an overflow past its five days.
	return Date{Year: eYear, Month: monthsInYear + 1, Day: offset + 1}
}
