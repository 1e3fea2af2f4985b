package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup wires structured JSON logging for a pool daemon and returns the
// configured slog.Logger. Every line carries the service name plus the
// deployment environment when one is set; the "dev" and "local" environments
// additionally lower the threshold to debug so accumulator checkpoints and
// custody transfers can be traced.
func Setup(service, env string) *slog.Logger {
	env = strings.TrimSpace(env)

	level := slog.LevelInfo
	switch env {
	case "dev", "local":
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Route the standard library logger through the same handler so library
	// code that still calls log.Printf lands in the structured stream.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
