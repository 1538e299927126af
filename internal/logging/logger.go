package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/trogers1052/ticker-research-service/internal/config"
)

const timeFormat = "15:04:05"

// New builds the arbor logger described by the logging configuration.
// Console output is used when no output is configured.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, output := range cfg.Output {
		switch output {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}
	if !hasFile && !hasConsole {
		hasConsole = true
	}

	if hasFile {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			fmt.Printf("Warning: failed to create logs directory: %v\n", err)
			hasConsole = true
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(cfg.Dir, "ticker-research.log"),
				TimeFormat: timeFormat,
				OutputType: models.OutputFormatLogfmt,
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 5,
			})
		}
	}

	if hasConsole {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: timeFormat,
		})
	}

	return logger.WithLevelFromString(cfg.Level)
}
