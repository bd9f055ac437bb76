package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	fromCtx := FromContext(ctx)
	fromCtx.Info().Str("user_id", "u1").Msg("hello")

	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)

	// missing logger is silent rather than nil
	silent := FromContext(context.Background())
	silent.Info().Msg("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestFromContextOrFallsBack(t *testing.T) {
	var attached, fallback bytes.Buffer
	ctx := WithContext(context.Background(), NewWithWriter(&attached))

	fromCtx := FromContextOr(ctx, NewWithWriter(&fallback))
	fromCtx.Info().Msg("attached")
	missing := FromContextOr(context.Background(), NewWithWriter(&fallback))
	missing.Info().Msg("fallback")

	assert.Contains(t, attached.String(), "attached")
	assert.Contains(t, fallback.String(), "fallback")
	assert.NotContains(t, fallback.String(), "attached")
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cronLogger := CronLogger{Logger: NewWithWriter(&buf)}

	cronLogger.Error(errors.New("boom"), "job failed", "entry", 3)

	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"entry":3`)
}
