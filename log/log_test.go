package log_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dudk/cochlea/log"
)

func TestNodeFields(t *testing.T) {
	var buf bytes.Buffer
	l := log.GetLogger()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

	var logger log.Logger = log.Node(l, "c0ffee", "gain", "stage.Gain")
	logger.Info("prepared")

	out := buf.String()
	assert.Contains(t, out, "node=gain")
	assert.Contains(t, out, "id=c0ffee")
	assert.Contains(t, out, "module=stage.Gain")
	assert.Contains(t, out, "msg=prepared")
}
