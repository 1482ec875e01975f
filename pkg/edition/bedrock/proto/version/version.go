// Package version contains the Minecraft Bedrock edition versions the bridge supports.
package version

import (
	"go.minekube.com/bridge/pkg/proto"
)

// Protocols that only bound packet version chains. Clients on these versions cannot join.
var (
	Minecraft_1_7_0    = &proto.Version{Protocol: 291, Names: s("1.7.0")}
	Minecraft_1_16_0   = &proto.Version{Protocol: 407, Names: s("1.16.0")}
	Minecraft_1_16_200 = &proto.Version{Protocol: 422, Names: s("1.16.200")}
	Minecraft_1_16_210 = &proto.Version{Protocol: 428, Names: s("1.16.210")}
	Minecraft_1_18_0   = &proto.Version{Protocol: 475, Names: s("1.18.0")}
	Minecraft_1_19_20  = &proto.Version{Protocol: 544, Names: s("1.19.20")}
)

var (
	Minecraft_1_18_30 = &proto.Version{Protocol: 503, Names: s("1.18.30", "1.18.31")}
	Minecraft_1_18_32 = &proto.Version{Protocol: 504, Names: s("1.18.32")}
	Minecraft_1_19_0  = &proto.Version{Protocol: 527, Names: s("1.19.0", "1.19.2")}
	Minecraft_1_19_10 = &proto.Version{Protocol: 534, Names: s("1.19.10", "1.19.11")}
	Minecraft_1_19_21 = &proto.Version{Protocol: 545, Names: s("1.19.21", "1.19.22")}
	Minecraft_1_19_30 = &proto.Version{Protocol: 554, Names: s("1.19.30", "1.19.31")}
	Minecraft_1_19_40 = &proto.Version{Protocol: 557, Names: s("1.19.40", "1.19.41")}
	Minecraft_1_19_50 = &proto.Version{Protocol: 560, Names: s("1.19.50", "1.19.51")}
	Minecraft_1_19_80 = &proto.Version{Protocol: 582, Names: s("1.19.80", "1.19.81")}
	Minecraft_1_20_0  = &proto.Version{Protocol: 589, Names: s("1.20.0", "1.20.1")}
	Minecraft_1_20_10 = &proto.Version{Protocol: 594, Names: s("1.20.10", "1.20.12")}

	// Default is the version used when a client did not tell its protocol yet.
	Default = Minecraft_1_20_10

	// Supported versions ordered from lowest to highest.
	Supported = []*proto.Version{
		Minecraft_1_18_30, Minecraft_1_18_32,
		Minecraft_1_19_0, Minecraft_1_19_10, Minecraft_1_19_21, Minecraft_1_19_30,
		Minecraft_1_19_40, Minecraft_1_19_50, Minecraft_1_19_80,
		Minecraft_1_20_0, Minecraft_1_20_10,
	}

	// Legacy versions ordered from lowest to highest.
	Legacy = []*proto.Version{
		Minecraft_1_7_0, Minecraft_1_16_0, Minecraft_1_16_200, Minecraft_1_16_210, Minecraft_1_18_0, Minecraft_1_19_20,
	}
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

// SupportedNames returns the user-friendly names of all supported versions.
func SupportedNames() []string {
	var names []string
	for _, v := range Supported {
		names = append(names, v.String())
	}
	return names
}

func s(s ...string) []string { return s }
