package domain

const (
	CoverCodeSuccess    = 200
	CoverCodeInProgress = 202
)

// CoverResult is the last known outcome of a cover task, served to pollers.
type CoverResult struct {
	Code      int             `json:"code"`
	Msg       string          `json:"msg"`
	Data      CoverResultData `json:"data"`
	Timestamp int64           `json:"timestamp,omitempty"` // unix millis when stored
}

type CoverResultData struct {
	TaskID string   `json:"taskId"`
	Images []string `json:"images"`
}

// CoverPending is the placeholder returned while no callback has arrived for taskID.
func CoverPending(taskID string) CoverResult {
	return CoverResult{
		Code: CoverCodeInProgress,
		Msg:  "Cover generation in progress",
		Data: CoverResultData{TaskID: taskID},
	}
}
