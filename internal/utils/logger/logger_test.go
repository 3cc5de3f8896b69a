package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})

	log := New("TEST")
	SetLevel("warn")
	log.Info("hidden %d", 1)
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown %s", "warning")
	assert.Contains(t, buf.String(), "shown warning")
	assert.Contains(t, buf.String(), "TEST")
}

func TestErrorWrapsCause(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	cause := errors.New("boom")
	err := New("TEST").Error("load %s", cause, "thing")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load thing: boom", err.Error())
	assert.Contains(t, buf.String(), "load thing: boom")
}
