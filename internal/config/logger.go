package config

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

type loggerKey struct{}

func Init(level, format string) error {
	Logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ContextWithLogger stores a request-scoped entry so later calls to
// WithContext keep its fields.
func ContextWithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

func WithContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(Logger)
	}
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	entry := logrus.NewEntry(Logger)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}
