package chrono

// Cycle lengths of the proleptic Gregorian calendar, in days.
const (
	daysPerYear     = 365
	daysPer4Years   = 1461
	daysPer100Years = 36524
	daysPer400Years = 146097
	daysTo1970      = 719162
	daysTo10000     = 3652059
)

// Cumulative days before each month; index 12 is the year length.
var (
	daysToMonth365 = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	daysToMonth366 = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

var (
	daysInMonth365 = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	daysInMonth366 = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	if year%4 != 0 {
		return false
	}
	if year%100 == 0 {
		return year%400 == 0
	}
	return true
}

// DaysInMonth returns the number of days in month of year, or 0 when month
// is not within 1..12.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if IsLeapYear(year) {
		return daysInMonth366[month-1]
	}
	return daysInMonth365[month-1]
}

// dateToTicks converts a calendar date to ticks since 0001-01-01.
// ok is false when any component is out of range.
func dateToTicks(year, month, day int) (ticks uint64, ok bool) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return 0, false
	}
	daysToMonth := &daysToMonth365
	if IsLeapYear(year) {
		daysToMonth = &daysToMonth366
	}
	if day < 1 || day > daysToMonth[month]-daysToMonth[month-1] {
		return 0, false
	}

	passed := year - 1
	full400 := passed / 400
	passed -= full400 * 400
	full100 := passed / 100
	passed -= full100 * 100
	full4 := passed / 4
	full1 := passed - full4*4

	days := full400*daysPer400Years +
		full100*daysPer100Years +
		full4*daysPer4Years +
		full1*daysPerYear +
		daysToMonth[month-1] +
		day - 1
	return uint64(days) * TicksPerDay, true
}

// civil inverts dateToTicks for a day count since the epoch.
func civil(fullDays int) (year, month, day, yearDay int) {
	full400 := fullDays / daysPer400Years
	rest := fullDays - full400*daysPer400Years

	// The last day of a 400 year cycle would otherwise count as a fifth century.
	full100 := rest / daysPer100Years
	if full100 == 4 {
		full100 = 3
	}
	rest -= full100 * daysPer100Years

	full4 := rest / daysPer4Years
	rest -= full4 * daysPer4Years

	// Same for the last day of a leap year closing a four year block.
	full1 := rest / daysPerYear
	if full1 == 4 {
		full1 = 3
	}
	rest -= full1 * daysPerYear

	year = full400*400 + full100*100 + full4*4 + full1 + 1
	yearDay = rest + 1

	daysToMonth := &daysToMonth365
	if full1 == 3 && (full4 != 24 || full100 == 3) {
		daysToMonth = &daysToMonth366
	}
	month = 1
	for rest >= daysToMonth[month] {
		month++
	}
	day = rest - daysToMonth[month-1] + 1
	return year, month, day, yearDay
}
