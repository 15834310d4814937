package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)
	ctx := WithContext(context.Background(), log)

	ctxLog := FromContext(ctx)
	ctxLog.Info().Msg("through context")
	if !strings.Contains(buf.String(), "through context") {
		t.Errorf("context logger not used: %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := Component(NewWithWriter(buf), "syncer")

	log.Info().Msg("tagged")
	if !strings.Contains(buf.String(), `"component":"syncer"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
