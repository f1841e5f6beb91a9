package enum

// LogStatus is the phase an execution log reached.
type LogStatus int8

const (
	LogUnprocessed LogStatus = 0
	LogHasResult   LogStatus = 1
	LogHasResponse LogStatus = 2
	LogHasError    LogStatus = 3
)

func (s LogStatus) String() string {
	switch s {
	case LogUnprocessed:
		return "UNPROCESSED"
	case LogHasResult:
		return "HAS_RESULT"
	case LogHasResponse:
		return "HAS_RESPONSE"
	case LogHasError:
		return "HAS_ERROR"
	default:
		return "UNKNOWN"
	}
}
