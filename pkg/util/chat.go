package util

import (
	"bytes"
	"strings"

	"go.minekube.com/common/minecraft/component/codec"
	"go.minekube.com/common/minecraft/component/codec/legacy"
)

var (
	// Json component codec of 1.16+ servers
	jsonCodec = &codec.Json{
		NoDownsampleColor: true,
		NoLegacyHover:     true,
	}
	// Bedrock clients display § formatted text
	legacyCodec = &legacy.Legacy{}
)

// LegacyText converts a Java JSON text component to the legacy formatted text
// Bedrock clients display. Anything that is not a JSON component is returned as is.
func LegacyText(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "\"") && !strings.HasPrefix(trimmed, "[") {
		return s
	}
	c, err := jsonCodec.Unmarshal([]byte(trimmed))
	if err != nil {
		return s
	}
	b := new(bytes.Buffer)
	if err = legacyCodec.Marshal(b, c); err != nil {
		return s
	}
	return b.String()
}
