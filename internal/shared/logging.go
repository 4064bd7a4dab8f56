package shared

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileSink returns a rotating log file writer for the given settings.
//
// Rotation and retention are handled by lumberjack: files roll at MaxSizeMB
// and old files are pruned past MaxAgeDays / MaxBackups.
func NewFileSink(cfg LoggingConfig) io.WriteCloser {
	dir := cfg.Directory
	if dir == "" {
		dir = "logs"
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, "ncx.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}

// NewRunLogger builds the process logger: stderr for the operator plus the
// rotating file sink for detailed per-track events.
func NewRunLogger(cfg LoggingConfig, sink io.Writer) *log.Logger {
	var w io.Writer = os.Stderr
	if sink != nil {
		w = io.MultiWriter(os.Stderr, sink)
	}

	logger := NewLogger(w)
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
