package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger on stderr tagged with the component name.
func NewLogger(component, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	logger.AddHook(componentHook{component: component})
	return logger
}

type componentHook struct {
	component string
}

func (h componentHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h componentHook) Fire(entry *logrus.Entry) error {
	entry.Data["component"] = h.component
	return nil
}
