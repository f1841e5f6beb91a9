package telemetry

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
)

// LogRow is the persisted shape of an execution log.
type LogRow struct {
	ID                  int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Code                int               `gorm:"column:code;index"`
	Name                string            `gorm:"column:name"`
	URL                 string            `gorm:"column:url"`
	MainSymbol          string            `gorm:"column:main_symbol"`
	BaseSymbol          string            `gorm:"column:base_symbol"`
	MainID              int               `gorm:"column:main_id"`
	BaseID              int               `gorm:"column:base_id"`
	ScheduleTime        time.Time         `gorm:"column:schedule_time"`
	UpdatedTime         time.Time         `gorm:"column:updated_time"`
	PushTime            time.Time         `gorm:"column:push_time"`
	DataType            enum.DataCategory `gorm:"column:data_type"`
	Status              enum.LogStatus    `gorm:"column:status"`
	Request             string            `gorm:"column:request"`
	Response            string            `gorm:"column:response"`
	Result              string            `gorm:"column:result"`
	TranID              string            `gorm:"column:tran_id;index"`
	CreatedTime         time.Time         `gorm:"column:created_time"`
	ResponseElapsedTime int64             `gorm:"column:response_elapsed_time"`
	TotalElapsedTime    int64             `gorm:"column:total_elapsed_time"`
}

// TableName implements gorm's tabler.
func (LogRow) TableName() string {
	return "exchange_log"
}

func newLogRow(l *model.ExecutionLog) LogRow {
	return LogRow{
		Code:                l.Code,
		Name:                l.Name,
		URL:                 l.URL,
		MainSymbol:          l.MainSymbol,
		BaseSymbol:          l.BaseSymbol,
		MainID:              l.MainID,
		BaseID:              l.BaseID,
		ScheduleTime:        l.ScheduleTime,
		UpdatedTime:         l.UpdatedTime,
		PushTime:            l.PushTime,
		DataType:            l.DataType,
		Status:              l.Status,
		Request:             l.Request,
		Response:            l.Response,
		Result:              l.Result,
		TranID:              l.TranID,
		CreatedTime:         l.CreatedTime,
		ResponseElapsedTime: l.ResponseElapsedTime,
		TotalElapsedTime:    l.TotalElapsedTime,
	}
}

// PGStore writes execution logs into PostgreSQL through gorm.
type PGStore struct {
	db *gorm.DB
}

// NewPGStore wraps db.
func NewPGStore(db *gorm.DB) *PGStore {
	return &PGStore{db: db}
}

// Migrate creates or updates the log table.
func (s *PGStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&LogRow{}); err != nil {
		return errors.Wrap(err, "migrate exchange log")
	}
	return nil
}

// SaveLogs inserts logs in one batch.
func (s *PGStore) SaveLogs(ctx context.Context, items []*model.ExecutionLog) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]LogRow, 0, len(items))
	for _, l := range items {
		if l == nil {
			continue
		}
		rows = append(rows, newLogRow(l))
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, len(rows)).Error; err != nil {
		return errors.Wrap(err, "insert exchange log").With("size", len(rows))
	}
	return nil
}
