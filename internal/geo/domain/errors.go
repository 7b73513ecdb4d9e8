package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrPresenceNotFound   = errors.New("no active presence share")
	ErrUserRequired       = errors.New("user id is required")
)

// PositionErrorCode — коды ошибок платформы (W3C GeolocationPositionError)
type PositionErrorCode int

const (
	CodePermissionDenied    PositionErrorCode = 1
	CodePositionUnavailable PositionErrorCode = 2
	CodeTimeout             PositionErrorCode = 3
)

// PositionError — отказ платформы в одном запросе
type PositionError struct {
	Code    PositionErrorCode `json:"code"`
	Message string            `json:"message"`
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
}

// IsPermissionDenied — дальше спрашивать бессмысленно
func IsPermissionDenied(err error) bool {
	var pe *PositionError
	return errors.As(err, &pe) && pe.Code == CodePermissionDenied
}

// ErrorKind — категория итоговой ошибки геолокации
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUnavailable      ErrorKind = "position_unavailable"
	KindTimeout          ErrorKind = "timeout"
	KindUnknown          ErrorKind = "unknown"
)

// AttemptError — неудача одного шага каскада
type AttemptError struct {
	Stage string
	Err   error
}

// LocationError — единственная ошибка, которую видит вызывающий после неудачного каскада
type LocationError struct {
	Kind     ErrorKind
	Message  string
	Attempts []AttemptError
	Cause    error
}

func (e *LocationError) Error() string {
	stages := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		stages = append(stages, a.Stage)
	}
	return fmt.Sprintf("geolocation failed (%s) after [%s]: %v", e.Kind, strings.Join(stages, ","), e.Cause)
}

func (e *LocationError) Unwrap() error {
	return e.Cause
}

// NewLocationError классифицирует последнюю неудачу каскада
func NewLocationError(attempts []AttemptError) *LocationError {
	var cause error
	if len(attempts) > 0 {
		cause = attempts[len(attempts)-1].Err
	}
	if cause == nil {
		cause = errors.New("no attempts made")
	}

	kind := Classify(cause)
	return &LocationError{
		Kind:     kind,
		Message:  LocalizedMessage(kind, cause),
		Attempts: attempts,
		Cause:    cause,
	}
}

// Classify сводит ошибку платформы к категории
func Classify(err error) ErrorKind {
	var pe *PositionError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodePermissionDenied:
			return KindPermissionDenied
		case CodePositionUnavailable:
			return KindUnavailable
		case CodeTimeout:
			return KindTimeout
		}
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// LocalizedMessage — текст для пользователя на иврите
func LocalizedMessage(kind ErrorKind, cause error) string {
	switch kind {
	case KindPermissionDenied:
		return "הגישה למיקום נחסמה. יש לאפשר גישה למיקום בהגדרות המכשיר ולנסות שוב."
	case KindUnavailable:
		return "לא ניתן לקבוע את המיקום כרגע. בדקו שהמיקום מופעל ונסו שוב."
	case KindTimeout:
		return "איתור המיקום נמשך זמן רב מדי. נסו שוב במקום פתוח."
	default:
		raw := "unknown error"
		if cause != nil {
			raw = cause.Error()
		}
		return fmt.Sprintf("שגיאה באיתור המיקום: %s", raw)
	}
}
