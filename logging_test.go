package spincube

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, "cube", false)

	l.Debugf("hidden %d", 1)
	l.Infof("hello %s", "world")
	l.Warnf("careful")
	l.Errorf("broken")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[cube] INFO: hello world")
	assert.Contains(t, errOut.String(), "[cube] WARN: careful")
	assert.Contains(t, errOut.String(), "[cube] ERROR: broken")

	l.SetDebug(true)
	l.Debugf("shown")
	assert.Contains(t, out.String(), "DEBUG: shown")
}

func TestLoggingModule(t *testing.T) {
	app := NewApp().UseModules(LoggingModule{Prefix: "x", Debug: true})
	assert.True(t, app.Logger().DebugEnabled())
	assert.IsType(t, &DefaultLogger{}, app.Logger())
}

func TestDefaultLogger_With(t *testing.T) {
	var out, errOut bytes.Buffer
	root := NewLoggerTo(&out, &errOut, "spincube", false)
	assets := root.With("assets")

	assets.Infof("Textures loaded (%d)", 6)
	assets.Warnf("Texture load failed")
	assert.Contains(t, out.String(), "[spincube/assets] INFO: Textures loaded (6)")
	assert.Contains(t, errOut.String(), "[spincube/assets] WARN: Texture load failed")

	// the debug switch is shared with the parent
	assets.Debugf("hidden")
	root.SetDebug(true)
	assert.True(t, assets.DebugEnabled())
	assets.Debugf("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[spincube/assets] DEBUG: shown")

	var bare bytes.Buffer
	NewLoggerTo(&bare, &bare, "", false).With("panel").Infof("ready")
	assert.Contains(t, bare.String(), "[panel] INFO: ready")
}

func TestNopLogger_With(t *testing.T) {
	l := NewNopLogger().With("render")
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
}
