package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old
	buf := make([]byte, 1024)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestPrintfRespectsLevelThreshold(t *testing.T) {
	oldLevel := Level
	defer func() { Level = oldLevel }()

	Level = Warn
	out := captureStderr(t, func() { Debugf("hidden %d", 1) })
	assert.Empty(t, out)

	out = captureStderr(t, func() { Warnf("shown %d", 2) })
	assert.Equal(t, "[WARN] shown 2\n", out)
}

func TestInfofAndErrorfFormatPrefix(t *testing.T) {
	oldLevel := Level
	defer func() { Level = oldLevel }()
	Level = Debug

	out := captureStderr(t, func() { Infof("loaded %s", "model") })
	assert.Equal(t, "[INFO] loaded model\n", out)

	out = captureStderr(t, func() { Errorf("boom") })
	assert.Equal(t, "[ERROR] boom\n", out)
}
