package loggy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger ids.
const (
	SHELL = iota
	CONTROLLER
	IMAGE
)

var ECHO bool = false
var SILENT bool = false

// LogFolder enables log files when set. Without it loggers only echo.
var LogFolder string = ""

type Logger struct {
	logFile *os.File
	id      int
	app     string
}

var loggers map[int]*Logger
var app string = "diskii"

func Get(id int) *Logger {
	if loggers == nil {
		loggers = make(map[int]*Logger)
	}
	l, ok := loggers[id]
	if !ok {
		l = NewLogger(id, app)
		loggers[id] = l
	}
	return l
}

// Reset closes all log files so the next Get picks up a changed LogFolder.
func Reset() {
	for id, l := range loggers {
		if l.logFile != nil {
			l.logFile.Close()
		}
		delete(loggers, id)
	}
}

func NewLogger(id int, app string) *Logger {

	if app == "" {
		app = "diskii"
	}

	l := &Logger{
		id:  id,
		app: app,
	}

	if LogFolder == "" || SILENT {
		return l
	}

	filename := fmt.Sprintf("%s_%d_%s.log", app, id, fts())
	if err := os.MkdirAll(LogFolder, 0755); err != nil {
		return l
	}

	f, err := os.Create(filepath.Join(LogFolder, filename))
	if err == nil {
		l.logFile = f
	}

	return l
}

func ts() string {
	t := time.Now()
	return fmt.Sprintf(
		"%.4d/%.2d/%.2d %.2d:%.2d:%.2d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
}

func fts() string {
	t := time.Now()
	return fmt.Sprintf(
		"%.4d%.2d%.2d%.2d%.2d%.2d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
}

func (l *Logger) enabled() bool {
	return !SILENT && (l.logFile != nil || ECHO)
}

func (l *Logger) emit(line string) {
	if l.logFile != nil {
		l.logFile.WriteString(line)
		l.logFile.Sync()
	}
	if ECHO {
		os.Stderr.WriteString(line)
	}
}

func (l *Logger) llogf(format string, designator string, v ...interface{}) {
	if !l.enabled() {
		return
	}

	format = ts() + " " + designator + " :: " + format

	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}

	l.emit(fmt.Sprintf(format, v...))
}

func (l *Logger) llog(designator string, v ...interface{}) {
	if !l.enabled() {
		return
	}

	format := ts() + " " + designator + " :: "
	for _, vv := range v {
		format += fmt.Sprintf("%v ", vv)
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}

	l.emit(format)
}

func (l *Logger) Logf(format string, v ...interface{}) {
	l.llogf(format, "INFO ", v...)
}

func (l *Logger) Log(v ...interface{}) {
	l.llog("INFO ", v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.llogf(format, "ERROR", v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.llog("ERROR", v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.llogf(format, "DEBUG", v...)
}

func (l *Logger) Debug(v ...interface{}) {
	l.llog("DEBUG", v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.llogf(format, "FATAL", v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.llog("FATAL", v...)
}
