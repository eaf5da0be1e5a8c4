package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger routes zerolog to logFile when one is set, to stderr when only
// debug is set, and nowhere otherwise so log lines never cut into the live
// progress display. The returned closer releases the log file.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Logger = zerolog.Nop()
			return io.NopCloser(nil), fmt.Errorf("error opening log file: %w", err)
		}
		SetLogOutput(zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339})
		return f, nil
	case debug:
		SetLogOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	default:
		log.Logger = zerolog.Nop()
	}
	return io.NopCloser(nil), nil
}

func SetLogOutput(w io.Writer) {
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
