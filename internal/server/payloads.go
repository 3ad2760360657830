package server

import (
	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
)

type categoryPayload struct {
	Day     string `json:"day"`
	Time    string `json:"time"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	APIName string `json:"api_name"`
}

type drawPayload struct {
	ID             int64  `json:"id"`
	Category       string `json:"category"`
	Date           string `json:"date"`
	WinningNumbers []int  `json:"winning_numbers"`
	MachineNumbers []int  `json:"machine_numbers"`
}

type drawListPayload struct {
	Draws []drawPayload `json:"draws"`
}

type monthOutcomePayload struct {
	Month     string `json:"month"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	Malformed int    `json:"malformed"`
	Error     string `json:"error,omitempty"`
}

type syncResultPayload struct {
	RunID    string                `json:"run_id"`
	Category string                `json:"category"`
	Mode     string                `json:"mode"`
	Records  []drawPayload         `json:"records"`
	Months   []monthOutcomePayload `json:"months"`
	Error    string                `json:"error,omitempty"`
}

func newCategoryPayload(category draws.Category) categoryPayload {
	return categoryPayload{
		Day:     category.Day,
		Time:    category.Time,
		Name:    category.Name,
		Slug:    category.Slug,
		APIName: category.APIName,
	}
}

func newDrawPayload(record draws.Draw) drawPayload {
	machine := record.MachineNumbers
	if machine == nil {
		machine = []int{}
	}
	return drawPayload{
		ID:             record.ID,
		Category:       record.Category,
		Date:           record.Date,
		WinningNumbers: record.WinningNumbers,
		MachineNumbers: machine,
	}
}

func newDrawPayloads(records []draws.Draw) []drawPayload {
	payloads := make([]drawPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, newDrawPayload(record))
	}
	return payloads
}

func newSyncResultPayload(result drawsync.Result) syncResultPayload {
	payload := syncResultPayload{
		RunID:    result.RunID,
		Category: result.Category,
		Mode:     result.Mode,
		Records:  newDrawPayloads(result.Records),
		Months:   make([]monthOutcomePayload, 0, len(result.Months)),
	}
	for _, month := range result.Months {
		outcome := monthOutcomePayload{
			Month:     month.Month.String(),
			Fetched:   month.Fetched,
			Inserted:  month.Inserted,
			Skipped:   month.Skipped,
			Malformed: month.Malformed,
		}
		if month.Err != nil {
			outcome.Error = month.Err.Error()
		}
		payload.Months = append(payload.Months, outcome)
	}
	if result.Err != nil {
		payload.Error = result.Err.Error()
	}
	return payload
}

// toDraw resolves the category by provider name or slug; unknown categories
// are reported through ok.
func (payload drawPayload) toDraw() (draws.Draw, bool) {
	category, ok := draws.ResolveCategory(payload.Category)
	if !ok {
		return draws.Draw{}, false
	}
	return draws.Draw{
		ID:             payload.ID,
		Category:       category.APIName,
		Date:           payload.Date,
		WinningNumbers: payload.WinningNumbers,
		MachineNumbers: payload.MachineNumbers,
	}, true
}
