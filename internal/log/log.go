package log

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"stockpos/internal/domain"
)

var std = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "action",
		},
	})
	return l
}

// SetOutput redirects every log line, e.g. to a file plus stdout or to a test buffer.
func SetOutput(w io.Writer) { std.SetOutput(w) }

func Writer() io.Writer { return std.Out }

func SetLevel(level string) {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	std.SetLevel(lv)
}

func Logger() *logrus.Logger { return std }

func write(level logrus.Level, category string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	f := logrus.Fields{}
	for k, v := range fields {
		f[k] = v
	}
	if category != "" {
		f["category"] = category
	}
	if c != nil {
		f["ip"] = c.IP()
		f["method"] = c.Method()
		f["path"] = c.Path()
		if st := c.Response().StatusCode(); st != 0 {
			f["status"] = st
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			f["req_id"] = rid
		}
		if p, ok := c.Locals("principal").(*domain.Principal); ok && p != nil {
			f["principal"] = string(p.Kind)
			f["actor"] = p.Actor
		}
	}
	e := std.WithFields(f)
	if err != nil {
		e = e.WithError(err)
	}
	e.Log(level, action)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.InfoLevel, "", c, action, nil, fields)
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.InfoLevel, "audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.WarnLevel, "security", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(logrus.ErrorLevel, "", c, action, err, fields)
}

// Op logs an event raised outside a request handler (services, startup).
func Op(action string, fields map[string]any) { write(logrus.InfoLevel, "", nil, action, nil, fields) }

func OpWarn(action string, fields map[string]any) {
	write(logrus.WarnLevel, "", nil, action, nil, fields)
}

func OpError(action string, err error, fields map[string]any) {
	write(logrus.ErrorLevel, "", nil, action, err, fields)
}
