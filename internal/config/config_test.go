package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationEnv(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "unset", value: "", expected: time.Second},
		{name: "go duration", value: "750ms", expected: 750 * time.Millisecond},
		{name: "milliseconds", value: "300", expected: 300 * time.Millisecond},
		{name: "garbage", value: "soon", expected: time.Second},
		{name: "negative", value: "-5s", expected: time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("RECICLO_TEST_DURATION", tc.value)
			assert.Equal(t, tc.expected, durationEnv("RECICLO_TEST_DURATION", time.Second))
		})
	}
}

func TestStringEnv(t *testing.T) {
	t.Setenv("RECICLO_TEST_STRING", "")
	assert.Equal(t, "fallback", stringEnv("RECICLO_TEST_STRING", "fallback"))

	t.Setenv("RECICLO_TEST_STRING", "set")
	assert.Equal(t, "set", stringEnv("RECICLO_TEST_STRING", "fallback"))
}

func TestDefaults(t *testing.T) {
	assert.NotEmpty(t, LogLevel)
	assert.NotEmpty(t, APIBaseURL)
	assert.Positive(t, RequestTimeout)
	assert.NotEmpty(t, SessionDSN)
}
