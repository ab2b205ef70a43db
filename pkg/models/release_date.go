package models

// ReleaseDateType records how specific a stored release date is.
type ReleaseDateType int

const (
	NoRelease ReleaseDateType = iota
	FullDate
	MonthYear
	QuarterYear
	YearOnly
)

func (t ReleaseDateType) String() string {
	switch t {
	case FullDate:
		return "Full"
	case MonthYear:
		return "Month"
	case QuarterYear:
		return "Quarter"
	case YearOnly:
		return "Year"
	default:
		return "None"
	}
}
