package packet

import (
	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto/codec"
)

var v763 = version.Minecraft_1_20.Protocol

// HandshakeDefinitions returns the packets of the handshake state.
func HandshakeDefinitions() [][]codec.Definition {
	return [][]codec.Definition{
		codec.Since(KindHandshake, "Handshake", v763, handshake),
	}
}

// LoginDefinitions returns the packets of the login state.
func LoginDefinitions() [][]codec.Definition {
	return [][]codec.Definition{
		codec.Since(KindLoginStart, "LoginStart", v763, loginStart),
		codec.Since(KindLoginDisconnect, "LoginDisconnect", v763, loginDisconnect),
		codec.Since(KindLoginSuccess, "LoginSuccess", v763, loginSuccess),
		codec.Since(KindSetCompression, "SetCompression", v763, setCompression),
		codec.Since(KindLoginPluginRequest, "LoginPluginRequest", v763, loginPluginRequest),
		codec.Since(KindLoginPluginResponse, "LoginPluginResponse", v763, loginPluginResponse),
	}
}

// PlayDefinitions returns the packets of the play state.
func PlayDefinitions() [][]codec.Definition {
	return [][]codec.Definition{
		codec.Since(KindBlockEntityData, "BlockEntityData", v763, blockEntityData),
		codec.Since(KindBlockUpdate, "BlockUpdate", v763, blockUpdate),
		codec.Since(KindPluginMessage, "PluginMessage", v763, pluginMessage),
		codec.Since(KindDisconnect, "Disconnect", v763, disconnect),
		codec.Since(KindKeepAlive, "KeepAlive", v763, keepAlive),
		codec.Since(KindPlayerInfoUpdate, "PlayerInfoUpdate", v763, playerInfoUpdate),
		codec.Since(KindPlayerInfoRemove, "PlayerInfoRemove", v763, playerInfoRemove),
		codec.Since(KindSystemChat, "SystemChat", v763, systemChat),
	}
}
