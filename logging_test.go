package voxmarch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLogger("vox", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("surface %s", "lost")
	l.Errorf("boom")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[vox] INFO: frame 2")
	assert.Contains(t, errOut.String(), "[vox] WARN: surface lost")
	assert.Contains(t, errOut.String(), "[vox] ERROR: boom")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 3)
	assert.Contains(t, out.String(), "DEBUG: shown 3")
}

func TestDefaultLogger_NoPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger("", false, &out, &out)
	l.Infof("hello")
	assert.Contains(t, out.String(), "INFO: hello")
	assert.NotContains(t, out.String(), "[")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	if l == nil {
		t.Fatal("OrNop must never return nil")
	}
	assert.False(t, l.DebugEnabled())

	d := NewNopLogger()
	assert.Same(t, d, OrNop(d))
}
