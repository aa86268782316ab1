package log

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Log = (*Logger)(nil)

var (
	innerLogger          *Logger
	loggerInitializeOnce sync.Once

	// componentLevels maps a component name to the atomic level driving
	// every logger created for that component. Entries are created on
	// first use and live for the process lifetime.
	componentLevels   = map[string]zap.AtomicLevel{}
	componentLevelsMu sync.Mutex
)

// Logger is a zap-backed implementation of Log.
type Logger struct {
	zapLogger *zap.Logger
	level     zap.AtomicLevel
	encoder   zapcore.Encoder
	sink      zapcore.WriteSyncer
}

// New builds the root logger writing JSON to stderr.
func New(level Level) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	sink := zapcore.Lock(os.Stderr)
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))

	logger := &Logger{
		zapLogger: zap.New(zapcore.NewCore(encoder, sink, atomicLevel)),
		level:     atomicLevel,
		encoder:   encoder,
		sink:      sink,
	}

	loggerInitializeOnce.Do(func() { innerLogger = logger })

	return logger
}

// Provide returns the first logger created by New.
func Provide() *Logger {
	return innerLogger
}

// Named returns a logger for the given component. All loggers with the
// same component name share one atomic level, which is the level that
// SetComponentLevel adjusts.
func (l *Logger) Named(component string) Log {
	lvl := componentLevel(component, l.level.Level())
	return &Logger{
		zapLogger: zap.New(zapcore.NewCore(l.encoder.Clone(), l.sink, lvl)).Named(component),
		level:     lvl,
		encoder:   l.encoder,
		sink:      l.sink,
	}
}

// SetComponentLevel changes the level of every logger named for the
// component. The level string is parsed by the zap backend; an
// unrecognized string is returned as an error without touching the
// current level. An unknown component gets a fresh entry so loggers
// created later pick the level up.
func SetComponentLevel(component, level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	componentLevel(component, parsed).SetLevel(parsed)
	return nil
}

func componentLevel(component string, initial zapcore.Level) zap.AtomicLevel {
	componentLevelsMu.Lock()
	defer componentLevelsMu.Unlock()
	lvl, ok := componentLevels[component]
	if !ok {
		lvl = zap.NewAtomicLevelAt(initial)
		componentLevels[component] = lvl
	}
	return lvl
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.zapLogger.Debug(msg, toZapFields(fields...)...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.zapLogger.Info(msg, toZapFields(fields...)...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.zapLogger.Warn(msg, toZapFields(fields...)...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.zapLogger.Error(msg, toZapFields(fields...)...)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.zapLogger.Fatal(msg, toZapFields(fields...)...)
}

func (l *Logger) With(fields ...Field) Log {
	return &Logger{
		zapLogger: l.zapLogger.With(toZapFields(fields...)...),
		level:     l.level,
		encoder:   l.encoder,
		sink:      l.sink,
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *Logger) GetLevel() Level {
	return fromZapLevel(l.level.Level())
}

// Helper functions to convert between levels and fields

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zap.DebugLevel
	case LevelInfo:
		return zap.InfoLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	case LevelFatal:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func fromZapLevel(level zapcore.Level) Level {
	switch level {
	case zap.DebugLevel:
		return LevelDebug
	case zap.InfoLevel:
		return LevelInfo
	case zap.WarnLevel:
		return LevelWarn
	case zap.ErrorLevel:
		return LevelError
	case zap.FatalLevel:
		return LevelFatal
	default:
		return LevelInfo
	}
}

// ParseLevel maps a level string onto Level for configuration files.
func ParseLevel(level string) (Level, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return LevelInfo, err
	}
	return fromZapLevel(parsed), nil
}

func toZapFields(fields ...Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch f.Type {
		case BoolType:
			zapFields[i] = zap.Bool(f.Key, f.Value.(bool))
		case DurationType:
			zapFields[i] = zap.Duration(f.Key, f.Value.(time.Duration))
		case Float64Type:
			zapFields[i] = zap.Float64(f.Key, f.Value.(float64))
		case IntType:
			zapFields[i] = zap.Int(f.Key, f.Value.(int))
		case Int64Type:
			zapFields[i] = zap.Int64(f.Key, f.Value.(int64))
		case StringType:
			zapFields[i] = zap.String(f.Key, f.Value.(string))
		case Uint64Type:
			zapFields[i] = zap.Uint64(f.Key, f.Value.(uint64))
		case ErrorType:
			zapFields[i] = zap.NamedError(f.Key, f.Value.(error))
		default:
			zapFields[i] = zap.Any(f.Key, f.Value)
		}
	}
	return zapFields
}
