/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger_test.go
Description: Tests for the logging system. Tests logger creation, configuration checks,
file output and pruning, and the compact custom formatter.
*/

package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerCreation tests logger creation with different configurations
func TestLoggerCreation(t *testing.T) {
	logger, err := logging.NewLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger.GetLogger())
	assert.Empty(t, logger.LogFile())
	require.NoError(t, logger.Close())

	for _, format := range []logging.LogFormat{logging.LogFormatText, logging.LogFormatJSON, logging.LogFormatCustom} {
		t.Run(string(format), func(t *testing.T) {
			logger, err := logging.NewLogger(&logging.LoggerConfig{
				Level:  logging.LogLevelDebug,
				Format: format,
			})
			require.NoError(t, err)
			assert.Equal(t, logrus.DebugLevel, logger.GetLogger().GetLevel())
			require.NoError(t, logger.Close())
		})
	}
}

// TestLoggerConfigValidate tests rejected configurations
func TestLoggerConfigValidate(t *testing.T) {
	assert.NoError(t, logging.DefaultLoggerConfig().Validate())

	tests := []struct {
		name   string
		config logging.LoggerConfig
	}{
		{"bad format", logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "xml"}},
		{"bad level", logging.LoggerConfig{Level: "loud", Format: logging.LogFormatText}},
		{"no files", logging.LoggerConfig{Level: logging.LogLevelInfo, Format: logging.LogFormatText, OutputDir: "logs"}},
		{"syslog without address", logging.LoggerConfig{
			Level:         logging.LogLevelInfo,
			Format:        logging.LogFormatText,
			SyslogEnabled: true,
			SyslogNetwork: "udp",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.config.Validate())
			_, err := logging.NewLogger(&tt.config)
			assert.Error(t, err)
		})
	}
}

// TestLogFileOutput tests that session events reach the log file
func TestLogFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, logger.LogFile())

	logger.LogQueryBatch("s1", 12, 3*time.Millisecond, nil)
	logger.LogConjecture("s1", 2, 3, logrus.Fields{"algorithm": "angluin"})
	logger.LogCounterexample("s1", 2, ".1.1.", nil)
	logger.LogStats("s1", 40, 2, nil)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.LogFile())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Membership queries answered")
	assert.Contains(t, content, `"algorithm":"angluin"`)
	assert.Contains(t, content, `"counterexample":".1.1."`)
	assert.Contains(t, content, `"membership_queries":40`)
}

// TestLogFilePruning tests that Close keeps at most MaxFiles log files
func TestLogFilePruning(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"learner_2020-01-01_00-00-00.000000.log", "learner_2020-01-02_00-00-00.000000.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatText,
		OutputDir: dir,
		MaxFiles:  1,
	})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "learner_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, logger.LogFile(), files[0])
}

// TestCustomFormatter tests the compact formatter output
func TestCustomFormatter(t *testing.T) {
	f := &logging.CustomFormatter{}
	entry := &logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "Conjecture ready",
		Data:    logrus.Fields{"states": 3, "round": 2, "elapsed": 1500 * time.Millisecond},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "INFO [CONJ] Conjecture ready elapsed=1.5s round=2 states=3\n", string(out))

	entry = &logrus.Entry{Level: logrus.WarnLevel, Message: "nothing special"}
	out, err = f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING nothing special\n", string(out))

	colored := &logging.CustomFormatter{Colors: true}
	out, err = colored.Format(entry)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "\033["))
}

// TestDiscard tests the silent logger
func TestDiscard(t *testing.T) {
	l := logging.Discard()
	assert.Equal(t, logrus.PanicLevel, l.GetLevel())
	l.WithField("k", "v").Error("dropped")
}
