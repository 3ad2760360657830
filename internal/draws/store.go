package draws

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opStoreNew         = "draws.store.new"
	opInsertMany       = "draws.insert_many"
	opInsertOne        = "draws.insert_one"
	opUpdate           = "draws.update"
	opDelete           = "draws.delete"
	opDeleteByCategory = "draws.delete_by_category"
	opGetByCategory    = "draws.get_by_category"
	opGetAll           = "draws.get_all"
	opGetByID          = "draws.get_by_id"
	opCountByCategory  = "draws.count_by_category"

	fieldCategory = "category"
	fieldDate     = "date"
	fieldDrawID   = "draw_id"

	queryCategory            = "category = ?"
	queryCategoryDate        = "category = ? AND draw_date = ?"
	queryCategoryDateOtherID = "category = ? AND draw_date = ? AND id <> ?"
	queryID                  = "id = ?"
	orderMostRecentFirst     = "draw_date DESC, id DESC"
	reasonMissingDatabase    = "missing_database"
	reasonInvalidDraw        = "invalid_draw"
	reasonMissingID          = "missing_id"
	reasonDuplicateRecord    = "duplicate_record"
	reasonRecordNotFound     = "record_not_found"
	reasonLookupFailed       = "lookup_failed"
	reasonInsertFailed       = "insert_failed"
	reasonSaveFailed         = "save_failed"
	reasonDeleteFailed       = "delete_failed"
	reasonQueryFailed        = "query_failed"
	reasonTransactionFailed  = "transaction_failed"
)

var (
	errMissingDatabase = fmt.Errorf("%w: database handle is required", ErrStorageUnavailable)
	noOpLogger         = zap.NewNop()
)

// StoreConfig describes the dependencies of the record store.
type StoreConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// InsertSummary reports how a bulk insert was absorbed by the unique index.
type InsertSummary struct {
	Inserted int
	Skipped  int

	// InsertedByCategory splits Inserted per category; nil when nothing was inserted.
	InsertedByCategory map[string]int
}

// Store persists draws with (category, date) uniqueness.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore constructs a Store over an already opened database handle.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opStoreNew, reasonMissingDatabase, errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{db: cfg.Database, logger: logger}, nil
}

// InsertMany inserts every record whose (category, date) is not yet stored and
// silently skips the rest. The call is a single transaction.
func (store *Store) InsertMany(ctx context.Context, records []Draw) (InsertSummary, error) {
	if store.db == nil {
		store.logError(opInsertMany, reasonMissingDatabase, errMissingDatabase)
		return InsertSummary{}, newServiceError(opInsertMany, reasonMissingDatabase, errMissingDatabase)
	}
	if len(records) == 0 {
		return InsertSummary{}, nil
	}

	prepared := make([]Draw, 0, len(records))
	for index, record := range records {
		normalized, err := record.normalized()
		if err != nil {
			return InsertSummary{}, newServiceError(opInsertMany, reasonInvalidDraw, fmt.Errorf("record %d: %w", index, err))
		}
		normalized.ID = 0
		prepared = append(prepared, normalized)
	}

	summary := InsertSummary{}
	transactionError := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		for index := range prepared {
			model := prepared[index]
			createResult := transaction.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
			if createResult.Error != nil {
				store.logError(opInsertMany, reasonInsertFailed, createResult.Error,
					zap.String(fieldCategory, model.Category),
					zap.String(fieldDate, model.Date))
				return newServiceError(opInsertMany, reasonInsertFailed, storageFailure(createResult.Error))
			}
			if createResult.RowsAffected == 0 {
				summary.Skipped++
				continue
			}
			summary.Inserted++
			if summary.InsertedByCategory == nil {
				summary.InsertedByCategory = make(map[string]int)
			}
			summary.InsertedByCategory[model.Category]++
		}
		return nil
	})
	if transactionError != nil {
		return InsertSummary{}, wrapTransactionError(opInsertMany, transactionError)
	}
	return summary, nil
}

// InsertOne stores a single record and returns its id. Unlike InsertMany it
// reports an existing (category, date) pair as ErrDuplicateRecord.
func (store *Store) InsertOne(ctx context.Context, record Draw) (int64, error) {
	if store.db == nil {
		store.logError(opInsertOne, reasonMissingDatabase, errMissingDatabase)
		return 0, newServiceError(opInsertOne, reasonMissingDatabase, errMissingDatabase)
	}
	model, err := record.normalized()
	if err != nil {
		return 0, newServiceError(opInsertOne, reasonInvalidDraw, err)
	}
	model.ID = 0

	transactionError := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var existing Draw
		lookupErr := transaction.Select("id").
			Where(queryCategoryDate, model.Category, model.Date).
			Take(&existing).Error
		if lookupErr == nil {
			return newServiceError(opInsertOne, reasonDuplicateRecord,
				fmt.Errorf("%w: %s on %s", ErrDuplicateRecord, model.Category, model.Date))
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			store.logError(opInsertOne, reasonLookupFailed, lookupErr,
				zap.String(fieldCategory, model.Category),
				zap.String(fieldDate, model.Date))
			return newServiceError(opInsertOne, reasonLookupFailed, storageFailure(lookupErr))
		}

		if createErr := transaction.Create(&model).Error; createErr != nil {
			if isUniqueViolation(createErr) {
				return newServiceError(opInsertOne, reasonDuplicateRecord,
					fmt.Errorf("%w: %s on %s", ErrDuplicateRecord, model.Category, model.Date))
			}
			store.logError(opInsertOne, reasonInsertFailed, createErr,
				zap.String(fieldCategory, model.Category),
				zap.String(fieldDate, model.Date))
			return newServiceError(opInsertOne, reasonInsertFailed, storageFailure(createErr))
		}
		return nil
	})
	if transactionError != nil {
		return 0, wrapTransactionError(opInsertOne, transactionError)
	}
	return model.ID, nil
}

// Update replaces the record identified by record.ID after re-checking that no
// other record owns the target (category, date) pair.
func (store *Store) Update(ctx context.Context, record Draw) error {
	if store.db == nil {
		store.logError(opUpdate, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opUpdate, reasonMissingDatabase, errMissingDatabase)
	}
	if record.ID <= 0 {
		return newServiceError(opUpdate, reasonMissingID, fmt.Errorf("%w: id is required for update", ErrInvalidDraw))
	}
	model, err := record.normalized()
	if err != nil {
		return newServiceError(opUpdate, reasonInvalidDraw, err)
	}

	transactionError := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var current Draw
		lookupErr := transaction.Where(queryID, model.ID).Take(&current).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdate, reasonRecordNotFound, fmt.Errorf("%w: id %d", ErrRecordNotFound, model.ID))
		}
		if lookupErr != nil {
			store.logError(opUpdate, reasonLookupFailed, lookupErr, zap.Int64(fieldDrawID, model.ID))
			return newServiceError(opUpdate, reasonLookupFailed, storageFailure(lookupErr))
		}

		var owner Draw
		ownerErr := transaction.Select("id").
			Where(queryCategoryDateOtherID, model.Category, model.Date, model.ID).
			Take(&owner).Error
		if ownerErr == nil {
			return newServiceError(opUpdate, reasonDuplicateRecord,
				fmt.Errorf("%w: %s on %s is owned by id %d", ErrDuplicateRecord, model.Category, model.Date, owner.ID))
		}
		if !errors.Is(ownerErr, gorm.ErrRecordNotFound) {
			store.logError(opUpdate, reasonLookupFailed, ownerErr, zap.Int64(fieldDrawID, model.ID))
			return newServiceError(opUpdate, reasonLookupFailed, storageFailure(ownerErr))
		}

		if saveErr := transaction.Save(&model).Error; saveErr != nil {
			if isUniqueViolation(saveErr) {
				return newServiceError(opUpdate, reasonDuplicateRecord,
					fmt.Errorf("%w: %s on %s", ErrDuplicateRecord, model.Category, model.Date))
			}
			store.logError(opUpdate, reasonSaveFailed, saveErr, zap.Int64(fieldDrawID, model.ID))
			return newServiceError(opUpdate, reasonSaveFailed, storageFailure(saveErr))
		}
		return nil
	})
	if transactionError != nil {
		return wrapTransactionError(opUpdate, transactionError)
	}
	return nil
}

// Delete removes the record with the given id. Unknown ids are not an error.
func (store *Store) Delete(ctx context.Context, id int64) error {
	if store.db == nil {
		store.logError(opDelete, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opDelete, reasonMissingDatabase, errMissingDatabase)
	}
	if id <= 0 {
		return nil
	}
	if err := store.db.WithContext(ctx).Where(queryID, id).Delete(&Draw{}).Error; err != nil {
		store.logError(opDelete, reasonDeleteFailed, err, zap.Int64(fieldDrawID, id))
		return newServiceError(opDelete, reasonDeleteFailed, storageFailure(err))
	}
	return nil
}

// DeleteByCategory removes every record of the category and returns how many were removed.
func (store *Store) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	if store.db == nil {
		store.logError(opDeleteByCategory, reasonMissingDatabase, errMissingDatabase)
		return 0, newServiceError(opDeleteByCategory, reasonMissingDatabase, errMissingDatabase)
	}
	deleteResult := store.db.WithContext(ctx).Where(queryCategory, category).Delete(&Draw{})
	if deleteResult.Error != nil {
		store.logError(opDeleteByCategory, reasonDeleteFailed, deleteResult.Error, zap.String(fieldCategory, category))
		return 0, newServiceError(opDeleteByCategory, reasonDeleteFailed, storageFailure(deleteResult.Error))
	}
	return deleteResult.RowsAffected, nil
}

// GetByCategory returns the category's records, most recent first.
func (store *Store) GetByCategory(ctx context.Context, category string) ([]Draw, error) {
	if store.db == nil {
		store.logError(opGetByCategory, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opGetByCategory, reasonMissingDatabase, errMissingDatabase)
	}
	var records []Draw
	if err := store.db.WithContext(ctx).
		Where(queryCategory, category).
		Order(orderMostRecentFirst).
		Find(&records).Error; err != nil {
		store.logError(opGetByCategory, reasonQueryFailed, err, zap.String(fieldCategory, category))
		return nil, newServiceError(opGetByCategory, reasonQueryFailed, storageFailure(err))
	}
	if records == nil {
		records = []Draw{}
	}
	return records, nil
}

// GetAll returns every record, most recent first.
func (store *Store) GetAll(ctx context.Context) ([]Draw, error) {
	if store.db == nil {
		store.logError(opGetAll, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opGetAll, reasonMissingDatabase, errMissingDatabase)
	}
	var records []Draw
	if err := store.db.WithContext(ctx).
		Order(orderMostRecentFirst).
		Find(&records).Error; err != nil {
		store.logError(opGetAll, reasonQueryFailed, err)
		return nil, newServiceError(opGetAll, reasonQueryFailed, storageFailure(err))
	}
	if records == nil {
		records = []Draw{}
	}
	return records, nil
}

// GetByID returns the record and true, or false when no record carries the id.
func (store *Store) GetByID(ctx context.Context, id int64) (Draw, bool, error) {
	if store.db == nil {
		store.logError(opGetByID, reasonMissingDatabase, errMissingDatabase)
		return Draw{}, false, newServiceError(opGetByID, reasonMissingDatabase, errMissingDatabase)
	}
	var record Draw
	err := store.db.WithContext(ctx).Where(queryID, id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Draw{}, false, nil
	}
	if err != nil {
		store.logError(opGetByID, reasonQueryFailed, err, zap.Int64(fieldDrawID, id))
		return Draw{}, false, newServiceError(opGetByID, reasonQueryFailed, storageFailure(err))
	}
	return record, true, nil
}

// CountByCategory returns how many records the category holds.
func (store *Store) CountByCategory(ctx context.Context, category string) (int64, error) {
	if store.db == nil {
		store.logError(opCountByCategory, reasonMissingDatabase, errMissingDatabase)
		return 0, newServiceError(opCountByCategory, reasonMissingDatabase, errMissingDatabase)
	}
	var count int64
	if err := store.db.WithContext(ctx).Model(&Draw{}).Where(queryCategory, category).Count(&count).Error; err != nil {
		store.logError(opCountByCategory, reasonQueryFailed, err, zap.String(fieldCategory, category))
		return 0, newServiceError(opCountByCategory, reasonQueryFailed, storageFailure(err))
	}
	return count, nil
}

// wrapTransactionError keeps service errors raised inside the transaction and
// classifies begin/commit failures as storage failures.
func wrapTransactionError(operation string, err error) error {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}
	return newServiceError(operation, reasonTransactionFailed, storageFailure(err))
}

func (store *Store) loggerOrDefault() *zap.Logger {
	if store == nil || store.logger == nil {
		return noOpLogger
	}
	return store.logger
}

func (store *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	store.loggerOrDefault().Error("draw store error", attrs...)
}
