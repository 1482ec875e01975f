package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyText(t *testing.T) {
	assert.Equal(t, "plain reason", LegacyText("plain reason"))
	assert.Equal(t, "Kicked", LegacyText(`{"text":"Kicked"}`))
	colored := LegacyText(`{"text":"Banned","color":"red"}`)
	assert.Contains(t, colored, "§c")
	assert.Contains(t, colored, "Banned")
	assert.Equal(t, "{broken", LegacyText("{broken"))
}
