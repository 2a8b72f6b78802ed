package common

import "fmt"

// Stage names the pipeline stage an error originated in
type Stage string

const (
	StageDecode     Stage = "decode"
	StageWindow     Stage = "window"
	StageTransform  Stage = "transform"
	StageAccumulate Stage = "accumulate"
	StageRender     Stage = "render"
)

// Error codes
const (
	ErrCodeIO                = "IO_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeCorruptData       = "CORRUPT_DATA"
	ErrCodeInvalidWindowSize = "INVALID_WINDOW_SIZE"
	ErrCodeRender            = "RENDER_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is; they match any AnalysisError with the same code.
var (
	ErrIO                = &AnalysisError{Code: ErrCodeIO, Message: "i/o error"}
	ErrUnsupportedFormat = &AnalysisError{Code: ErrCodeUnsupportedFormat, Message: "unsupported format"}
	ErrCorruptData       = &AnalysisError{Code: ErrCodeCorruptData, Message: "corrupt data"}
	ErrInvalidWindowSize = &AnalysisError{Code: ErrCodeInvalidWindowSize, Message: "invalid window size"}
	ErrRender            = &AnalysisError{Code: ErrCodeRender, Message: "render error"}
)

// AnalysisError represents a failure in one stage of the analysis pipeline
type AnalysisError struct {
	Stage   Stage  `json:"stage,omitempty"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}

	switch {
	case e.Stage != "" && e.Path != "":
		return fmt.Sprintf("%s failed for %s: %s", e.Stage, e.Path, msg)
	case e.Stage != "":
		return fmt.Sprintf("%s failed: %s", e.Stage, msg)
	default:
		return msg
	}
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AnalysisError carrying the same code
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewAnalysisError creates a new analysis error
func NewAnalysisError(stage Stage, path, code, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Stage:   stage,
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithPath returns a copy of err tagged with path if it is an AnalysisError
// without one. Other errors are returned unchanged.
func WithPath(err error, path string) error {
	ae, ok := err.(*AnalysisError)
	if !ok || ae.Path != "" {
		return err
	}
	cp := *ae
	cp.Path = path
	return &cp
}

// WithStage is WithPath for the stage field.
func WithStage(err error, stage Stage) error {
	ae, ok := err.(*AnalysisError)
	if !ok || ae.Stage != "" {
		return err
	}
	cp := *ae
	cp.Stage = stage
	return &cp
}
