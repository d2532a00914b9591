package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	AgentNameField = "agent"
	RunIDField     = "run"
	TraceIDField   = "trace"
	StageField     = "stage"
	RoundField     = "round"
	TopicField     = "topic"
	ToolField      = "tool"
	ActorIDField   = "actor"
)

// NewGlobal configures the global zerolog logger. When file is set, logs are also
// written as JSON to a rotating file.
func NewGlobal(level string, pretty bool, file string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(l)

	var console io.Writer = os.Stderr
	if pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if file == "" {
		log.Logger = log.Output(console)
		return nil
	}

	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, rotator))
	return nil
}
