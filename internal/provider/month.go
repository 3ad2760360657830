package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidMonth indicates that a month selector could not be parsed.
var ErrInvalidMonth = errors.New("provider: invalid month selector")

var frenchMonthNames = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// MonthSelector identifies one monthly results page of the provider.
type MonthSelector struct {
	Year  int
	Month time.Month
}

// MonthOf returns the selector of the month containing moment.
func MonthOf(moment time.Time) MonthSelector {
	return MonthSelector{Year: moment.Year(), Month: moment.Month()}
}

// AddMonths shifts the selector by delta calendar months.
func (selector MonthSelector) AddMonths(delta int) MonthSelector {
	shifted := time.Date(selector.Year, selector.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return MonthOf(shifted)
}

// String renders the selector in the provider's query format, e.g. "février-2025".
func (selector MonthSelector) String() string {
	if selector.Month < time.January || selector.Month > time.December {
		return ""
	}
	return frenchMonthNames[selector.Month-1] + "-" + strconv.Itoa(selector.Year)
}

// ParseMonthSelector parses "<mois>-<année>"; accents and case are ignored.
func ParseMonthSelector(raw string) (MonthSelector, error) {
	trimmed := strings.TrimSpace(raw)
	separator := strings.LastIndex(trimmed, "-")
	if separator <= 0 || separator == len(trimmed)-1 {
		return MonthSelector{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	year, err := strconv.Atoi(trimmed[separator+1:])
	if err != nil || year <= 0 {
		return MonthSelector{}, fmt.Errorf("%w: year in %q", ErrInvalidMonth, raw)
	}
	name := foldAccents(strings.ToLower(trimmed[:separator]))
	for index, candidate := range frenchMonthNames {
		if foldAccents(candidate) == name {
			return MonthSelector{Year: year, Month: time.Month(index + 1)}, nil
		}
	}
	return MonthSelector{}, fmt.Errorf("%w: month in %q", ErrInvalidMonth, raw)
}

func foldAccents(value string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, value)
	if err != nil {
		return value
	}
	return folded
}
