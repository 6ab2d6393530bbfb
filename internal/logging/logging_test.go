package logging

import (
	"bytes"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	saved := log.DefaultLogger
	t.Cleanup(func() { log.DefaultLogger = saved })

	var buf bytes.Buffer
	Setup(&buf, "info", false)
	log.Debug().Msg("hidden")
	log.Info().Str("doc", "essay.txt").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "essay.txt")

	buf.Reset()
	Setup(&buf, "error", true)
	log.Debug().Msg("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, parseLevel("warning"))
	assert.Equal(t, log.ErrorLevel, parseLevel("error"))
	assert.Equal(t, log.InfoLevel, parseLevel(""))
	assert.Equal(t, log.InfoLevel, parseLevel("chatty"))
}
