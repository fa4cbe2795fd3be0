package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and carries per-strategy cascade detail:
// every window tried, every pattern compiled.
const TraceLevel = zapcore.Level(-2)

// levelNames lists the accepted spellings, canonical name first.
var levelNames = map[zapcore.Level][]string{
	TraceLevel:         {"trace"},
	zapcore.DebugLevel: {"debug"},
	zapcore.InfoLevel:  {"info", ""},
	zapcore.WarnLevel:  {"warn", "warning"},
	zapcore.ErrorLevel: {"error"},
}

// LevelFromString parses a level name case-insensitively. An empty name
// means info.
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	for l, names := range levelNames {
		for _, n := range names {
			if n == level {
				return l, nil
			}
		}
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want trace, debug, info, warn or error)", level)
}

// LevelName returns the canonical name of l.
func LevelName(l zapcore.Level) string {
	if names, ok := levelNames[l]; ok {
		return names[0]
	}
	return l.String()
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(LevelName(l))
}

// newEncoder builds the JSON or console encoder with ISO8601 "ts" times.
func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = encodeLevel
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
