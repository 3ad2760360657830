package predict

import (
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
)

// DefaultHistoryWindow bounds how many recent draws are sent to the model.
const DefaultHistoryWindow = 75

// FormatHistory renders the most recent window draws, one line each. records
// must be ordered newest first; window <= 0 uses DefaultHistoryWindow.
func FormatHistory(records []draws.Draw, window int) string {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(records) > window {
		records = records[:window]
	}

	var builder strings.Builder
	for index, record := range records {
		if index > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString("Date: ")
		builder.WriteString(record.Date)
		builder.WriteString(", Gagnants: ")
		builder.WriteString(joinNumbers(record.WinningNumbers))
		if record.HasMachineNumbers() {
			builder.WriteString(", Machine: ")
			builder.WriteString(joinNumbers(record.MachineNumbers))
		}
	}
	return builder.String()
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for index, number := range numbers {
		parts[index] = strconv.Itoa(number)
	}
	return strings.Join(parts, ",")
}
