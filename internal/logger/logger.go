package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var LevelMap = map[string]LogLevel{
	"DEBUG": DEBUG,
	"INFO":  INFO,
	"WARN":  WARN,
	"ERROR": ERROR,
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	if l, ok := LevelMap[s]; ok {
		return l
	}
	return INFO
}

type Logger interface {
	D(msg string, args ...interface{})
	I(msg string, args ...interface{})
	W(msg string, args ...interface{})
	E(msg string, args ...interface{})
	F(msg string, args ...interface{})
}

type logger struct {
	level     LogLevel
	component string
}

func New(level LogLevel, component string) Logger {
	return &logger{
		level:     level,
		component: component,
	}
}

func (l *logger) log(level LogLevel, levelName string, colorFunc func(string, ...interface{}) string, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logLine := fmt.Sprintf("%s | %s | %-10s | %s", timestamp, colorFunc(levelName), l.component, msg)

	fmt.Fprintln(os.Stderr, logLine)
}

func (l *logger) D(msg string, args ...interface{}) {
	l.log(DEBUG, "DEBUG", color.CyanString, msg, args...)
}

func (l *logger) I(msg string, args ...interface{}) {
	l.log(INFO, "INFO ", color.BlueString, msg, args...)
}

func (l *logger) W(msg string, args ...interface{}) {
	l.log(WARN, "WARN ", color.YellowString, msg, args...)
}

func (l *logger) E(msg string, args ...interface{}) {
	l.log(ERROR, "ERROR", color.MagentaString, msg, args...)
}

func (l *logger) F(msg string, args ...interface{}) {
	l.log(FATAL, "FATAL", color.RedString, msg, args...)
	os.Exit(1)
}
