package notify

import (
	"bytes"
	"testing"

	"reciclo/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Success("Offer created")
	c.Error("Insufficient balance")
	c.LevelUp(3)

	assert.Equal(t, "[ok] Offer created\n[error] Insufficient balance\n[level] Congratulations! You reached level 3!\n", buf.String())
}

func TestMultiAndRecorder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := &Recorder{}
	m := Multi{rec, NewLog(&logger.Logger{Logger: zap.New(core)})}

	m.Info("hello")
	m.LevelUp(2)

	assert.Equal(t, []Message{
		{Kind: KindInfo, Text: "hello"},
		{Kind: KindLevelUp, Text: LevelUpMessage(2), Level: 2},
	}, rec.Messages())
	assert.Equal(t, 2, logs.FilterMessage("notification").Len())

	rec.Reset()
	assert.Equal(t, Message{}, rec.Last())
}
