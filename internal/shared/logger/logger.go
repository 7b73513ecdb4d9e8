package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrObj — описание ошибки в записи лога
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// MarshalLogObject позволяет zap писать ErrObj как вложенный объект.
func (e *ErrObj) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.Msg)
	if e.Stack != "" {
		enc.AddString("stack", e.Stack)
	}
	return nil
}

// Entry — одна запись лога.
// Action — машинное имя события (market_resolved), Message — человекочитаемый текст.
type Entry struct {
	Action     string
	Message    string
	RequestID  string
	UserID     string
	DeviceID   string
	Error      *ErrObj
	Additional map[string]any
}

type Logger struct {
	z       *zap.Logger
	service string
}

// ParseLevel: DEBUG, INFO, WARN, ERROR (по умолчанию INFO)
func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger — JSON в stdout, ERROR в stderr. LOG_LEVEL и LOG_PRETTY читаются из окружения.
func NewLogger(service string) *Logger {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	pretty := strings.ToLower(os.Getenv("LOG_PRETTY")) == "true"

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if pretty {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level && l >= zapcore.ErrorLevel })

	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), high),
	)
	return NewWithCore(service, core)
}

// NewWithCore собирает логгер поверх готового zapcore.Core (используется в тестах).
func NewWithCore(service string, core zapcore.Core) *Logger {
	h, _ := os.Hostname()
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).With(
		zap.String("service", service),
		zap.String("hostname", h),
	)
	return &Logger{z: z, service: service}
}

// NewNop — логгер, который ничего не пишет.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Service() string { return l.service }

// Sync сбрасывает буферы. Ошибку игнорируем: stdout на части платформ не поддерживает fsync.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}

func (l *Logger) Debug(e Entry) { l.log(zapcore.DebugLevel, e) }
func (l *Logger) Info(e Entry)  { l.log(zapcore.InfoLevel, e) }
func (l *Logger) Warn(e Entry)  { l.log(zapcore.WarnLevel, e) }
func (l *Logger) Error(e Entry) { l.log(zapcore.ErrorLevel, e) }

// Fatal пишет запись со стеком и завершает процесс.
func (l *Logger) Fatal(e Entry) { l.log(zapcore.FatalLevel, e) }

// With возвращает дочерний логгер с полями, которые добавляются к каждой записи.
//
//	reqLog := log.With(map[string]any{"request_id": "abc123"})
//	reqLog.Info(logger.Entry{Action: "market_resolved"})
func (l *Logger) With(fields map[string]any) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{z: l.z.With(zf...), service: l.service}
}

func (l *Logger) log(level zapcore.Level, e Entry) {
	ce := l.z.Check(level, e.Message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 6+len(e.Additional))
	fields = append(fields, zap.String("action", e.Action))
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	if e.UserID != "" {
		fields = append(fields, zap.String("user_id", e.UserID))
	}
	if e.DeviceID != "" {
		fields = append(fields, zap.String("device_id", e.DeviceID))
	}
	if e.Error != nil {
		fields = append(fields, zap.Object("error", e.Error))
	}
	if len(e.Additional) > 0 {
		fields = append(fields, zap.Any("additional", e.Additional))
	}

	ce.Write(fields...)
}
