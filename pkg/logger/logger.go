package logger

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// New returns an echo logger connected to logrus. Every line carries the "component" field.
func New(component string) echo.Logger {
	return &logger{
		log:   logrus.StandardLogger(),
		entry: ComponentContext(component).Entry(),
	}
}

type logger struct {
	log   *logrus.Logger
	entry *logrus.Entry
}

func mustMarshal(j log.JSON) string {
	b, err := json.Marshal(j)
	if err != nil {
		panic(fmt.Sprintf("unable to parse log message: %v", j))
	}
	return string(b)
}

func (l *logger) SetLevel(v log.Lvl) { /* The logging level is set by SetLogrus. */ }
func (l *logger) Level() log.Lvl {
	switch l.log.Level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return log.DEBUG
	case logrus.InfoLevel:
		return log.INFO
	case logrus.WarnLevel:
		return log.WARN
	default:
		return log.ERROR
	}
}

func (l *logger) SetOutput(w io.Writer) { l.log.Out = w }
func (l *logger) Output() io.Writer     { return l.log.Out }

func (l *logger) SetPrefix(p string) { /* Logrus uses fields rather than prefixes. */ }
func (l *logger) Prefix() string     { return "" }

func (l *logger) SetHeader(h string) { /* Logrus uses formatters rather than headers. */ }

func (l *logger) Print(i ...interface{})                    { l.entry.Print(i...) }
func (l *logger) Printf(format string, args ...interface{}) { l.entry.Printf(format, args...) }
func (l *logger) Printj(j log.JSON)                         { l.entry.Println(mustMarshal(j)) }
func (l *logger) Debug(i ...interface{})                    { l.entry.Debug(i...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logger) Debugj(j log.JSON)                         { l.entry.Debugln(mustMarshal(j)) }
func (l *logger) Info(i ...interface{})                     { l.entry.Info(i...) }
func (l *logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logger) Infoj(j log.JSON)                          { l.entry.Infoln(mustMarshal(j)) }
func (l *logger) Warn(i ...interface{})                     { l.entry.Warn(i...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logger) Warnj(j log.JSON)                          { l.entry.Warnln(mustMarshal(j)) }
func (l *logger) Error(i ...interface{})                    { l.entry.Error(i...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logger) Errorj(j log.JSON)                         { l.entry.Errorln(mustMarshal(j)) }
func (l *logger) Fatal(i ...interface{})                    { l.entry.Fatal(i...) }
func (l *logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }
func (l *logger) Fatalj(j log.JSON)                         { l.entry.Fatalln(mustMarshal(j)) }
func (l *logger) Panic(i ...interface{})                    { l.entry.Panic(i...) }
func (l *logger) Panicf(format string, args ...interface{}) { l.entry.Panicf(format, args...) }
func (l *logger) Panicj(j log.JSON)                         { l.entry.Panicln(mustMarshal(j)) }
