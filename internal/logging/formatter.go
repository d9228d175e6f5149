// Package logging provides the colored logrus formatter used by
// cmd/layerstore.
//
// Grounded on util/log/logger.go's FancyLogFormatter, trimmed to the
// symbol/color table and field formatting (the caller-finding and
// syslog-forwarding parts are daemon concerns this module has no use
// for).
package logging

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var symbolTable = map[logrus.Level]string{
	logrus.DebugLevel: "·",
	logrus.InfoLevel:  "i",
	logrus.WarnLevel:  "!",
	logrus.ErrorLevel: "✗",
	logrus.FatalLevel: "☠",
	logrus.PanicLevel: "☠",
}

var colorTable = map[logrus.Level]func(string, ...interface{}) string{
	logrus.DebugLevel: color.CyanString,
	logrus.InfoLevel:  color.GreenString,
	logrus.WarnLevel:  color.YellowString,
	logrus.ErrorLevel: color.RedString,
	logrus.FatalLevel: color.MagentaString,
	logrus.PanicLevel: color.MagentaString,
}

func colorByLevel(level logrus.Level, msg string) string {
	fn, ok := colorTable[level]
	if !ok {
		return msg
	}

	return fn(msg)
}

// Formatter is the default logrus formatter for layerstore's CLI.
type Formatter struct {
	UseColors bool
}

// Format renders one log entry as "DD.MM.YYYY/HH:MM:SS <symbol> msg
// [field=value ...]", coloring the symbol and message by level when
// UseColors is set.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}

	writeTimestamp(buf, entry.Time)
	buf.WriteByte(' ')

	symbol := symbolTable[entry.Level]
	msg := symbol + " " + entry.Message

	if f.UseColors {
		buf.WriteString(colorByLevel(entry.Level, msg))
	} else {
		buf.WriteString(msg)
	}

	if len(entry.Data) > 0 {
		writeFields(f.UseColors, buf, entry)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeTimestamp(buf *bytes.Buffer, t time.Time) {
	fmt.Fprintf(buf, "%02d.%02d.%04d/%02d:%02d:%02d",
		t.Day(), t.Month(), t.Year(), t.Hour(), t.Minute(), t.Second())
}

func writeFields(useColors bool, buf *bytes.Buffer, entry *logrus.Entry) {
	buf.WriteString(" [")

	idx := 0
	for key, value := range entry.Data {
		label := key
		if useColors {
			label = colorByLevel(entry.Level, key)
		}

		fmt.Fprintf(buf, "%s=%v", label, value)

		if idx != len(entry.Data)-1 {
			buf.WriteByte(' ')
		}

		idx++
	}

	buf.WriteByte(']')
}
