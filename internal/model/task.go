package model

import (
	"strings"
	"time"

	"tickerflow/internal/model/enum"
)

// ScheduleTask is one unit of fetch work published on the schedule topic.
type ScheduleTask struct {
	ExchangeID   int               `json:"exchangeId"`
	ExchangeName string            `json:"exchangeName"`
	MainSymbol   string            `json:"mainSymbol,omitempty"`
	BaseSymbol   string            `json:"baseSymbol,omitempty"`
	MainID       int               `json:"mainId,omitempty"`
	BaseID       int               `json:"baseId,omitempty"`
	Type         enum.DataCategory `json:"type"`
	ScheduleTime time.Time         `json:"scheduleTime"`
	TranID       string            `json:"tranId"`
}

// IsFullQuery reports whether the task asks for every pair of the exchange.
func (t ScheduleTask) IsFullQuery() bool {
	return strings.TrimSpace(t.MainSymbol) == "" && strings.TrimSpace(t.BaseSymbol) == ""
}
