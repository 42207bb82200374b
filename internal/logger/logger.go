// Package logger configures the logrus standard logger and the HTTP access
// log from the logging configuration.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// File names used inside the configured logging directories
const (
	InternalLogFile = "certledger.log"
	AccessLogFile   = "access.log"
	ErrorLogFile    = "errors.log"
)

// Output describes where a log goes. Dir and StdErr can be combined; if
// neither is set, output goes to stderr.
type Output struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

// Conf holds the logging configuration
type Conf struct {
	Access   Output       `yaml:"access"`
	Internal InternalConf `yaml:"internal"`
}

// InternalConf configures the application log
type InternalConf struct {
	Output `yaml:",inline"`
	Level  string `yaml:"level"`
	// Smart duplicates entries of level error and above into a separate file
	Smart SmartConf `yaml:"smart"`
}

// SmartConf enables the error log file
type SmartConf struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

var accessLog io.Writer = os.Stderr

// Init sets up the standard logger and the access log writer. Files are
// opened in append mode and stay open for the lifetime of the process.
func Init(conf Conf) error {
	level := log.InfoLevel
	if conf.Internal.Level != "" {
		var err error
		level, err = log.ParseLevel(conf.Internal.Level)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	out, err := writer(conf.Internal.Output, InternalLogFile)
	if err != nil {
		return err
	}
	log.SetOutput(out)

	if conf.Internal.Smart.Enabled {
		dir := conf.Internal.Smart.Dir
		if dir == "" {
			dir = conf.Internal.Dir
		}
		if dir == "" {
			return errors.New("smart logging requires a directory")
		}
		f, err := openLogFile(dir, ErrorLogFile)
		if err != nil {
			return err
		}
		log.AddHook(NewErrorHook(f))
	}

	accessLog, err = writer(conf.Access, AccessLogFile)
	return err
}

// AccessLog returns the writer for HTTP access log lines
func AccessLog() io.Writer {
	return accessLog
}

func writer(o Output, file string) (io.Writer, error) {
	if o.Dir == "" {
		return os.Stderr, nil
	}
	f, err := openLogFile(o.Dir, file)
	if err != nil {
		return nil, err
	}
	if o.StdErr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}

func openLogFile(dir, name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	return f, errors.WithStack(err)
}

// ErrorHook writes entries of level error and above to an additional writer
type ErrorHook struct {
	out       io.Writer
	formatter log.Formatter
}

// NewErrorHook creates an ErrorHook writing to out
func NewErrorHook(out io.Writer) *ErrorHook {
	return &ErrorHook{
		out:       out,
		formatter: &log.JSONFormatter{},
	}
}

// Levels implements the logrus.Hook interface
func (h *ErrorHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

// Fire implements the logrus.Hook interface
func (h *ErrorHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}
