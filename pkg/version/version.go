// Package version holds the build version of the bridge.
package version

import (
	"net/http"
	"strings"
)

// Version information set by build flags
// Set using -ldflags "-X go.minekube.com/bridge/pkg/version.version=v1.2.3"
var version string = "unknown"

func String() string {
	return version
}

// UserAgent is sent with requests to the Mojang APIs.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("Minekube-Bridge/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("Dirty")
	}
	return s.String()
}

func UserAgentHeader() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent())
	return h
}
