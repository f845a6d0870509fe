package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInterrupt(t *testing.T) {
	assert.True(t, isInterrupt(context.Canceled))
	assert.True(t, isInterrupt(fmt.Errorf("scan: %w", context.Canceled)))
	assert.False(t, isInterrupt(errors.New("input/output error")))
	assert.False(t, isInterrupt(context.DeadlineExceeded))
}
