package provider

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
)

// ErrMalformedEntry marks a single page entry that could not be normalized.
var ErrMalformedEntry = errors.New("provider: malformed entry")

var digitRuns = regexp.MustCompile(`\d+`)

type resultsEnvelope struct {
	Success            bool            `json:"success"`
	Message            string          `json:"message"`
	Error              string          `json:"error"`
	DrawsResultsWeekly []weeklyResults `json:"drawsResultsWeekly"`
}

type weeklyResults struct {
	DrawResultsDaily []dailyResults `json:"drawResultsDaily"`
}

type dailyResults struct {
	Date        string           `json:"date"`
	DrawResults drawResultsGroup `json:"drawResults"`
}

type drawResultsGroup struct {
	StandardDraws []standardDraw `json:"standardDraws"`
}

type standardDraw struct {
	DrawName       string `json:"drawName"`
	WinningNumbers string `json:"winningNumbers"`
	MachineNumbers string `json:"machineNumbers"`
}

// MalformedEntry describes a page entry that was skipped during normalization.
type MalformedEntry struct {
	DrawName string
	RawDate  string
	Err      error
}

func (entry MalformedEntry) Error() string {
	return fmt.Sprintf("%s on %q: %v", entry.DrawName, entry.RawDate, entry.Err)
}

func (entry MalformedEntry) Unwrap() error {
	return entry.Err
}

// Page is the normalized content of one monthly results page.
type Page struct {
	Month     MonthSelector
	Draws     []draws.Draw
	Malformed []MalformedEntry
}

// ForCategory returns the page draws belonging to the category.
func (page Page) ForCategory(category string) []draws.Draw {
	filtered := make([]draws.Draw, 0, len(page.Draws))
	for _, draw := range page.Draws {
		if draw.Category == category {
			filtered = append(filtered, draw)
		}
	}
	return filtered
}

func normalizeEnvelope(envelope resultsEnvelope, month MonthSelector) Page {
	page := Page{Month: month, Draws: []draws.Draw{}}
	for _, week := range envelope.DrawsResultsWeekly {
		for _, day := range week.DrawResultsDaily {
			date, dateErr := resolveEntryDate(day.Date, month)
			for _, entry := range day.DrawResults.StandardDraws {
				drawName := strings.TrimSpace(entry.DrawName)
				if _, known := draws.CategoryByAPIName(drawName); !known {
					continue
				}
				if strings.HasPrefix(strings.TrimSpace(entry.WinningNumbers), ".") {
					continue
				}
				if dateErr != nil {
					page.Malformed = append(page.Malformed, MalformedEntry{DrawName: drawName, RawDate: day.Date, Err: dateErr})
					continue
				}
				draw, err := normalizeDraw(drawName, date, entry)
				if err != nil {
					page.Malformed = append(page.Malformed, MalformedEntry{DrawName: drawName, RawDate: day.Date, Err: err})
					continue
				}
				page.Draws = append(page.Draws, draw)
			}
		}
	}
	return page
}

func normalizeDraw(drawName, date string, entry standardDraw) (draws.Draw, error) {
	winning := extractNumbers(entry.WinningNumbers)
	if len(winning) != draws.NumbersPerDraw {
		return draws.Draw{}, fmt.Errorf("%w: expected %d winning numbers, got %d", ErrMalformedEntry, draws.NumbersPerDraw, len(winning))
	}

	var machine []int
	if candidate := extractNumbers(entry.MachineNumbers); len(candidate) == draws.NumbersPerDraw && allValid(candidate) {
		machine = candidate
	}

	draw := draws.Draw{
		Category:       drawName,
		Date:           date,
		WinningNumbers: winning,
		MachineNumbers: machine,
	}
	if err := draw.Validate(); err != nil {
		return draws.Draw{}, fmt.Errorf("%w: %w", ErrMalformedEntry, err)
	}
	return draw, nil
}

// resolveEntryDate turns "dimanche 04/05" into an ISO date using the page's
// year. Pages may carry days of the adjacent month across a year boundary.
func resolveEntryDate(raw string, month MonthSelector) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: date %q lacks a dd/MM part", ErrMalformedEntry, raw)
	}
	parts := strings.Split(fields[1], "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: date %q lacks a dd/MM part", ErrMalformedEntry, raw)
	}
	day, dayErr := strconv.Atoi(parts[0])
	monthNumber, monthErr := strconv.Atoi(parts[1])
	if dayErr != nil || monthErr != nil || monthNumber < 1 || monthNumber > 12 || day < 1 {
		return "", fmt.Errorf("%w: date %q is not dd/MM", ErrMalformedEntry, raw)
	}

	entryMonth := time.Month(monthNumber)
	year := month.Year
	switch {
	case month.Month == time.January && entryMonth == time.December:
		year--
	case month.Month == time.December && entryMonth == time.January:
		year++
	}

	resolved := time.Date(year, entryMonth, day, 0, 0, 0, 0, time.UTC)
	if resolved.Day() != day || resolved.Month() != entryMonth {
		return "", fmt.Errorf("%w: date %q does not exist in %d", ErrMalformedEntry, raw, year)
	}
	return resolved.Format(draws.DateLayout), nil
}

func extractNumbers(raw string) []int {
	matches := digitRuns.FindAllString(raw, -1)
	numbers := make([]int, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		numbers = append(numbers, value)
	}
	return numbers
}

func allValid(numbers []int) bool {
	for _, value := range numbers {
		if !draws.ValidNumber(value) {
			return false
		}
	}
	return true
}
