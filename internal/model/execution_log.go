package model

import (
	"time"

	"tickerflow/internal/model/enum"
)

// ExecutionLog traces one task through the collector. It is created when the
// task starts, mutated by each phase and handed to the log sink at the end.
type ExecutionLog struct {
	Code                int               `json:"code"`
	Name                string            `json:"name"`
	URL                 string            `json:"url,omitempty"`
	MainSymbol          string            `json:"mainSymbol,omitempty"`
	BaseSymbol          string            `json:"baseSymbol,omitempty"`
	MainID              int               `json:"mainId,omitempty"`
	BaseID              int               `json:"baseId,omitempty"`
	ScheduleTime        time.Time         `json:"scheduleTime"`
	UpdatedTime         time.Time         `json:"updatedTime"`
	PushTime            time.Time         `json:"pushTime"`
	DataType            enum.DataCategory `json:"dataType"`
	Status              enum.LogStatus    `json:"status"`
	Request             string            `json:"request,omitempty"`
	Response            string            `json:"response,omitempty"`
	Result              string            `json:"result,omitempty"`
	TranID              string            `json:"tranId"`
	CreatedTime         time.Time         `json:"createdTime"`
	ResponseElapsedTime int64             `json:"responseElapsedTime"`
	TotalElapsedTime    int64             `json:"totalElapsedTime"`

	startedAt time.Time
}

// NewExecutionLog starts the trace of task at now.
func NewExecutionLog(task ScheduleTask, now time.Time) *ExecutionLog {
	return &ExecutionLog{
		Code:         task.ExchangeID,
		Name:         task.ExchangeName,
		MainSymbol:   task.MainSymbol,
		BaseSymbol:   task.BaseSymbol,
		MainID:       task.MainID,
		BaseID:       task.BaseID,
		ScheduleTime: task.ScheduleTime,
		DataType:     task.Type,
		Status:       enum.LogUnprocessed,
		TranID:       task.TranID,
		CreatedTime:  now.UTC(),
		startedAt:    now,
	}
}

// StartedAt returns the time the trace was started.
func (l *ExecutionLog) StartedAt() time.Time {
	if l == nil {
		return time.Time{}
	}
	return l.startedAt
}

// MarkRequest records an outgoing request body.
func (l *ExecutionLog) MarkRequest(url, body string) {
	if l == nil {
		return
	}
	l.URL = url
	l.Request = body
}

// MarkResponse records a raw upstream response.
func (l *ExecutionLog) MarkResponse(url, body string, now time.Time) {
	if l == nil {
		return
	}
	l.URL = url
	l.Response = body
	l.Status = enum.LogHasResponse
	l.ResponseElapsedTime = now.Sub(l.startedAt).Milliseconds()
}

// MarkResult records the serialized normalized result.
func (l *ExecutionLog) MarkResult(result string, now time.Time) {
	if l == nil {
		return
	}
	l.Result = result
	l.Status = enum.LogHasResult
	l.UpdatedTime = now.UTC()
}

// MarkError stores the error text in the response field. The status is kept
// at the last phase reached.
func (l *ExecutionLog) MarkError(err error) {
	if l == nil || err == nil {
		return
	}
	l.Response = err.Error()
}

// Fail marks a task that never reached the exchange.
func (l *ExecutionLog) Fail(err error) {
	if l == nil {
		return
	}
	l.MarkError(err)
	l.Status = enum.LogHasError
}

// Finish records the total elapsed time.
func (l *ExecutionLog) Finish(now time.Time) {
	if l == nil {
		return
	}
	l.PushTime = now.UTC()
	l.TotalElapsedTime = now.Sub(l.startedAt).Milliseconds()
}
