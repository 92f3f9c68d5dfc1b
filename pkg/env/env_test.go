package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAndFirst(t *testing.T) {
	t.Setenv("NUTRIFLOW_TEST_BLANK", "   ")
	t.Setenv("NUTRIFLOW_TEST_SET", " value ")

	assert.Equal(t, "fallback", Get("NUTRIFLOW_TEST_BLANK", "fallback"))
	assert.Equal(t, "value", Get("NUTRIFLOW_TEST_SET", "fallback"))
	assert.Equal(t, "value", First("fallback", "NUTRIFLOW_TEST_MISSING", "NUTRIFLOW_TEST_BLANK", "NUTRIFLOW_TEST_SET"))
	assert.Equal(t, "fallback", First("fallback", "NUTRIFLOW_TEST_MISSING"))
}
