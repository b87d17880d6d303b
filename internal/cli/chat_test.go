package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

func TestPrintResult(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printResult(&buf, model.Result{
		Response: "What type of habit is this?",
		Flow:     &model.Snapshot{Type: model.FlowHabit, Status: model.StatusActive, Step: 1, Total: 6},
	})
	assert.Equal(t, "companion> What type of habit is this?\n  [habit flow active, step 2/6]\n", buf.String())

	buf.Reset()
	printResult(&buf, model.Result{Response: "Sorry", Err: errors.New("redis down"), Retryable: true})
	assert.Equal(t, "companion> Sorry\n  [error: redis down]\n", buf.String())
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["chat"])
	assert.True(t, names["serve"])
	assert.True(t, names["records"])
}
