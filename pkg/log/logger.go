package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// Options controls the process-wide logger.
type Options struct {
	Debug bool
	// JSON switches from the human readable console writer to raw JSON lines.
	JSON bool
	// Out defaults to stdout. The MCP stdio server needs stderr.
	Out io.Writer
}

func NewContextWithLogger(ctx context.Context, opts Options) (context.Context, func()) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return ""
	}

	if opts.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Non-blocking ring buffer so webhook handlers never wait on stdout.
	dst := opts.Out
	if dst == nil {
		dst = os.Stdout
	}
	wr := diode.NewWriter(dst, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Printf("Logger Dropped %d messages\n", missed)
	})

	var out io.Writer = wr
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        wr,
			TimeFormat: time.DateTime,
			PartsOrder: []string{
				zerolog.LevelFieldName,
				zerolog.TimestampFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			},
		}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		CallerWithSkipFrameCount(2).
		Logger()

	log.Logger = logger

	return log.With().Logger().WithContext(ctx), func() {
		wr.Close()
	}
}

func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// WithFields returns a child context whose logger carries the given string fields.
// Keys and values alternate; a trailing key without a value is ignored.
func WithFields(ctx context.Context, kv ...string) context.Context {
	lc := FromCtx(ctx).With()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		lc = lc.Str(kv[i], kv[i+1])
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}
