package draws

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MinNumber is the smallest number a ball can carry.
	MinNumber = 1
	// MaxNumber is the largest number a ball can carry.
	MaxNumber = 90
	// NumbersPerDraw is the size of a complete winning or machine set.
	NumbersPerDraw = 5
	// DateLayout is the ISO calendar date layout used for draw dates.
	DateLayout = "2006-01-02"

	maxCategoryLength = 190
)

var (
	// ErrInvalidDraw indicates that a draw violates the record invariants.
	ErrInvalidDraw = errors.New("draws: invalid draw")
	// ErrDuplicateRecord indicates that another record already owns the (category, date) pair.
	ErrDuplicateRecord = errors.New("draws: duplicate record")
	// ErrRecordNotFound indicates that no record carries the requested id.
	ErrRecordNotFound = errors.New("draws: record not found")
	// ErrStorageUnavailable indicates that the store could not be opened or transacted.
	ErrStorageUnavailable = errors.New("draws: storage unavailable")
)

// Draw models one observed draw outcome for a category on a given day.
type Draw struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Category       string `gorm:"column:category;size:190;not null;uniqueIndex:idx_draws_category_date,priority:1;index:idx_draws_category"`
	Date           string `gorm:"column:draw_date;size:10;not null;uniqueIndex:idx_draws_category_date,priority:2"`
	WinningNumbers []int  `gorm:"column:winning_numbers;type:text;not null;serializer:json"`
	MachineNumbers []int  `gorm:"column:machine_numbers;type:text;serializer:json"`
}

// TableName provides the explicit table binding for GORM.
func (Draw) TableName() string {
	return "draws"
}

// HasMachineNumbers reports whether machine numbers were published for the draw.
func (d Draw) HasMachineNumbers() bool {
	return len(d.MachineNumbers) > 0
}

// Validate checks the record invariants without touching storage.
func (d Draw) Validate() error {
	_, err := d.normalized()
	return err
}

// normalized returns a trimmed copy with empty machine numbers collapsed to nil.
func (d Draw) normalized() (Draw, error) {
	category := strings.TrimSpace(d.Category)
	if category == "" {
		return Draw{}, fmt.Errorf("%w: empty category", ErrInvalidDraw)
	}
	if len(category) > maxCategoryLength {
		return Draw{}, fmt.Errorf("%w: category exceeds %d characters", ErrInvalidDraw, maxCategoryLength)
	}

	date, err := NormalizeDate(d.Date)
	if err != nil {
		return Draw{}, err
	}

	if len(d.WinningNumbers) != NumbersPerDraw {
		return Draw{}, fmt.Errorf("%w: expected %d winning numbers, got %d", ErrInvalidDraw, NumbersPerDraw, len(d.WinningNumbers))
	}
	if err := checkRange("winning", d.WinningNumbers); err != nil {
		return Draw{}, err
	}
	if duplicate, found := firstDuplicate(d.WinningNumbers); found {
		return Draw{}, fmt.Errorf("%w: winning number %d repeated", ErrInvalidDraw, duplicate)
	}

	var machine []int
	switch len(d.MachineNumbers) {
	case 0:
	case NumbersPerDraw:
		if err := checkRange("machine", d.MachineNumbers); err != nil {
			return Draw{}, err
		}
		machine = append([]int(nil), d.MachineNumbers...)
	default:
		return Draw{}, fmt.Errorf("%w: expected 0 or %d machine numbers, got %d", ErrInvalidDraw, NumbersPerDraw, len(d.MachineNumbers))
	}

	return Draw{
		ID:             d.ID,
		Category:       category,
		Date:           date,
		WinningNumbers: append([]int(nil), d.WinningNumbers...),
		MachineNumbers: machine,
	}, nil
}

// NormalizeDate validates an ISO calendar date and returns its canonical form.
func NormalizeDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty date", ErrInvalidDraw)
	}
	parsed, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidDraw, raw)
	}
	return parsed.Format(DateLayout), nil
}

// ValidNumber reports whether value can appear on a ball.
func ValidNumber(value int) bool {
	return value >= MinNumber && value <= MaxNumber
}

func checkRange(label string, numbers []int) error {
	for _, value := range numbers {
		if !ValidNumber(value) {
			return fmt.Errorf("%w: %s number %d outside [%d,%d]", ErrInvalidDraw, label, value, MinNumber, MaxNumber)
		}
	}
	return nil
}

func firstDuplicate(numbers []int) (int, bool) {
	seen := make(map[int]struct{}, len(numbers))
	for _, value := range numbers {
		if _, ok := seen[value]; ok {
			return value, true
		}
		seen[value] = struct{}{}
	}
	return 0, false
}
