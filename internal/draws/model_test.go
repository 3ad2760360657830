package draws

import (
	"errors"
	"testing"
)

func TestDrawValidate(t *testing.T) {
	testCases := []struct {
		name    string
		draw    Draw
		wantErr bool
	}{
		{name: "complete", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4, 90}, MachineNumbers: []int{5, 6, 7, 8, 9}}},
		{name: "no-machine", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4, 5}}},
		{name: "empty-category", draw: Draw{Category: "  ", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4, 5}}, wantErr: true},
		{name: "bad-date", draw: Draw{Category: "Reveil", Date: "01/01/2024", WinningNumbers: []int{1, 2, 3, 4, 5}}, wantErr: true},
		{name: "impossible-date", draw: Draw{Category: "Reveil", Date: "2024-02-30", WinningNumbers: []int{1, 2, 3, 4, 5}}, wantErr: true},
		{name: "four-winning", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4}}, wantErr: true},
		{name: "winning-out-of-range", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{0, 2, 3, 4, 5}}, wantErr: true},
		{name: "winning-repeated", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{7, 2, 3, 7, 5}}, wantErr: true},
		{name: "partial-machine", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4, 5}, MachineNumbers: []int{1, 2}}, wantErr: true},
		{name: "machine-out-of-range", draw: Draw{Category: "Reveil", Date: "2024-01-01", WinningNumbers: []int{1, 2, 3, 4, 5}, MachineNumbers: []int{1, 2, 3, 4, 91}}, wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.draw.Validate()
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidDraw) {
					t.Fatalf("expected invalid draw error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizedCollapsesEmptyMachineNumbers(t *testing.T) {
	normalized, err := Draw{
		Category:       " Reveil ",
		Date:           "2024-01-01",
		WinningNumbers: []int{1, 2, 3, 4, 5},
		MachineNumbers: []int{},
	}.normalized()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized.MachineNumbers != nil {
		t.Fatalf("expected nil machine numbers, got %#v", normalized.MachineNumbers)
	}
	if normalized.Category != "Reveil" {
		t.Fatalf("expected trimmed category, got %q", normalized.Category)
	}
}
