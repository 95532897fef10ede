package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/booksync/cmd/booksync/commands"
	"github.com/mmcdole/booksync/internal/app"
)

func failingBuilder(context.Context, app.Options) (*commands.Env, func(), error) {
	return nil, nil, errors.New("failed to load config")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"version"}, &stdout, &stderr, failingBuilder)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "booksync version")
	assert.Empty(t, stderr.String())
}

func TestRun_BuildFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"sync", "status"}, &stdout, &stderr, failingBuilder)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: failed to load config")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"frobnicate"}, &stdout, &stderr, failingBuilder)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown command")
}
