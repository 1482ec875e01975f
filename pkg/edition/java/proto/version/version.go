// Package version contains the Minecraft Java edition versions the bridge speaks
// to its backend server.
package version

import (
	"go.minekube.com/bridge/pkg/proto"
)

var (
	Minecraft_1_20 = &proto.Version{Protocol: 763, Names: s("1.20", "1.20.1")}

	// Default is the protocol the bridge logs in to the backend with.
	Default = Minecraft_1_20

	// Supported versions ordered from lowest to highest.
	Supported = []*proto.Version{Minecraft_1_20}
)

// Protocol returns the supported version of a protocol number, or nil.
func Protocol(p proto.Protocol) *proto.Version {
	for _, v := range Supported {
		if v.Protocol == p {
			return v
		}
	}
	return nil
}

func s(s ...string) []string { return s }
