package draws

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "draws.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Draw{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store, err := NewStore(StoreConfig{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store, db
}

func sampleDraw(category, date string, winning ...int) Draw {
	if len(winning) == 0 {
		winning = []int{5, 17, 33, 48, 90}
	}
	return Draw{
		Category:       category,
		Date:           date,
		WinningNumbers: winning,
	}
}

func collectDates(records []Draw) []string {
	dates := make([]string, 0, len(records))
	for _, record := range records {
		dates = append(dates, record.Date)
	}
	return dates
}
