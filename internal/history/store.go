package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kanboard/kanboard-go/pkg/kanboard"
)

const defaultDBPath = "kanboard-history.db"

// Config selects the history database. A DSN starting with postgres:// or
// postgresql:// opens PostgreSQL, anything else is a SQLite file path.
type Config struct {
	DSN      string `env:"KANBOARD_HISTORY_DSN" env-default:"kanboard-history.db"`
	Disabled bool   `env:"KANBOARD_HISTORY_DISABLED"`
}

// CallRecord is one remote procedure call made from the CLI.
type CallRecord struct {
	ID         string         `gorm:"column:id;primaryKey"`
	Method     string         `gorm:"column:method;not null;index"`
	Params     datatypes.JSON `gorm:"column:params;type:text;not null"`
	Async      bool           `gorm:"column:async;not null"`
	Status     string         `gorm:"column:status;not null"`
	Error      string         `gorm:"column:error;type:text"`
	ErrorCode  int            `gorm:"column:error_code"`
	DurationMs int64          `gorm:"column:duration_ms;not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index"`
}

func (CallRecord) TableName() string {
	return "call_history"
}

// NewRecord describes a finished call. callErr is the error returned by the
// client, if any. It fails only when params cannot be encoded.
func NewRecord(method string, params kanboard.Params, async bool, started time.Time, callErr error) (CallRecord, error) {
	if params == nil {
		params = kanboard.Params{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return CallRecord{}, fmt.Errorf("failed to encode params of %s: %w", method, err)
	}

	rec := CallRecord{
		Method:     method,
		Params:     datatypes.JSON(encoded),
		Async:      async,
		Status:     kanboard.CallStatus(callErr),
		DurationMs: time.Since(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if callErr != nil {
		rec.Error = callErr.Error()
		var cerr *kanboard.ClientError
		if errors.As(callErr, &cerr) {
			rec.ErrorCode = cerr.Code
		}
	}
	return rec, nil
}

type Store struct {
	db *gorm.DB
}

// Open connects to the database named by dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate history schema: %w", err)
	}

	return &Store{db: db}, nil
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}

	path := strings.TrimPrefix(dsn, "file:")
	if path == "" {
		path = defaultDBPath
	}
	return sqlite.Open(fmt.Sprintf("file:%s?cache=shared", path))
}

// Record stores rec, assigning an id and timestamp when missing.
func (s *Store) Record(ctx context.Context, rec CallRecord) (*CallRecord, error) {
	if rec.Method == "" {
		return nil, errors.New("method cannot be empty")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if len(rec.Params) == 0 {
		rec.Params = datatypes.JSON("{}")
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to record call: %w", err)
	}
	return &rec, nil
}

// List returns the most recent calls first. limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]CallRecord, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []CallRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return records, nil
}

// Methods returns every distinct method called so far, sorted.
func (s *Store) Methods(ctx context.Context) ([]string, error) {
	var methods []string
	if err := s.db.WithContext(ctx).Model(&CallRecord{}).
		Distinct("method").Order("method ASC").Pluck("method", &methods).Error; err != nil {
		return nil, fmt.Errorf("failed to list methods: %w", err)
	}
	return methods, nil
}

// Clear deletes all records and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&CallRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear history: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
