// Package stats derives number frequencies and co-occurrences from stored draws.
package stats

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
)

// DefaultTopCompanions is the number of companions CoOccurrences returns when top is not positive.
const DefaultTopCompanions = 10

// ErrInvalidNumber indicates a target outside the playable range.
var ErrInvalidNumber = errors.New("stats: number out of range")

// NumberFrequency counts how often a number appeared.
type NumberFrequency struct {
	Number  int `json:"number"`
	Winning int `json:"winning"`
	Machine int `json:"machine"`
	Total   int `json:"total"`
}

// FrequencyTable holds one entry per playable number, most frequent first.
type FrequencyTable struct {
	DrawsConsidered int               `json:"draws_considered"`
	Numbers         []NumberFrequency `json:"numbers"`
}

// Companion counts how often a number was drawn alongside a target.
type Companion struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

// Frequencies counts winning and machine appearances across the most recent
// limit draws. records must be ordered newest first; limit <= 0 means all.
func Frequencies(records []draws.Draw, limit int) FrequencyTable {
	window := recent(records, limit)
	table := FrequencyTable{
		DrawsConsidered: len(window),
		Numbers:         make([]NumberFrequency, draws.MaxNumber-draws.MinNumber+1),
	}
	for index := range table.Numbers {
		table.Numbers[index].Number = draws.MinNumber + index
	}
	for _, record := range window {
		for _, number := range record.WinningNumbers {
			if draws.ValidNumber(number) {
				table.Numbers[number-draws.MinNumber].Winning++
			}
		}
		for _, number := range record.MachineNumbers {
			if draws.ValidNumber(number) {
				table.Numbers[number-draws.MinNumber].Machine++
			}
		}
	}
	for index := range table.Numbers {
		table.Numbers[index].Total = table.Numbers[index].Winning + table.Numbers[index].Machine
	}
	sort.SliceStable(table.Numbers, func(i, j int) bool {
		if table.Numbers[i].Total != table.Numbers[j].Total {
			return table.Numbers[i].Total > table.Numbers[j].Total
		}
		return table.Numbers[i].Number < table.Numbers[j].Number
	})
	return table
}

// CoOccurrence splits a target's companions by the set they were drawn in.
type CoOccurrence struct {
	Winning []Companion `json:"winning"`
	Machine []Companion `json:"machine"`
}

// CoOccurrences lists the numbers most often drawn with target, top per list.
// Winning companions are the other winning numbers of draws where target won.
// Machine companions are counted from two independent rules: every machine
// number of a draw where target won, and the other machine numbers of a draw
// where target was a machine number. A draw matching both rules counts twice.
// Ties are broken by the lower number.
func CoOccurrences(records []draws.Draw, target, top int) (CoOccurrence, error) {
	if !draws.ValidNumber(target) {
		return CoOccurrence{}, fmt.Errorf("%w: %d", ErrInvalidNumber, target)
	}
	if top <= 0 {
		top = DefaultTopCompanions
	}

	winning := make(map[int]int)
	machine := make(map[int]int)
	for _, record := range records {
		targetWon := contains(record.WinningNumbers, target)
		if targetWon {
			countOthers(winning, record.WinningNumbers, target)
			countOthers(machine, record.MachineNumbers, target)
		}
		if contains(record.MachineNumbers, target) {
			countOthers(machine, record.MachineNumbers, target)
		}
	}
	return CoOccurrence{Winning: rankCompanions(winning, top), Machine: rankCompanions(machine, top)}, nil
}

func rankCompanions(counts map[int]int, top int) []Companion {
	companions := make([]Companion, 0, len(counts))
	for number, count := range counts {
		companions = append(companions, Companion{Number: number, Count: count})
	}
	sort.Slice(companions, func(i, j int) bool {
		if companions[i].Count != companions[j].Count {
			return companions[i].Count > companions[j].Count
		}
		return companions[i].Number < companions[j].Number
	})
	if len(companions) > top {
		companions = companions[:top]
	}
	return companions
}

func recent(records []draws.Draw, limit int) []draws.Draw {
	if limit <= 0 || limit >= len(records) {
		return records
	}
	return records[:limit]
}

func contains(numbers []int, target int) bool {
	for _, number := range numbers {
		if number == target {
			return true
		}
	}
	return false
}

func countOthers(counts map[int]int, numbers []int, target int) {
	for _, number := range numbers {
		if number != target && draws.ValidNumber(number) {
			counts[number]++
		}
	}
}
