package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("Debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, INFO, ParseLevel("что-то"), "Неизвестный уровень должен давать INFO")
}

func TestWriterLoggerFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, WARN)

	l.Info("не должно попасть")
	l.Warn("чанк %d:%d", 1, 2)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [world] чанк 1:2")
}

func TestManagerReusesComponentLoggers(t *testing.T) {
	lm := NewLoggerManager(false, DEBUG)
	a, err := lm.GetLogger("light")
	require.NoError(t, err)
	b := lm.MustGetLogger("light")
	assert.Same(t, a, b, "Менеджер должен возвращать один и тот же логгер")

	lm.MustGetLogger("api")
	assert.Equal(t, []string{"api", "light"}, lm.ListComponents())

	assert.Error(t, lm.SetLogLevel("нет", INFO, INFO))
	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	prev := Default()
	defer SetDefaultLogger(prev)

	require.NoError(t, InitDefaultLogger("test", dir))
	Info("запись в файл")
	CloseDefaultLogger()

	lm := NewLoggerManager(true, INFO)
	l, err := lm.GetLogger("comp")
	require.NoError(t, err)
	l.Debug("только в файл")
	require.NoError(t, lm.CloseAll())
	assert.True(t, strings.HasPrefix(logDir, dir))
}
