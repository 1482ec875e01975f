package packet

import (
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
)

var (
	v291 = version.Minecraft_1_7_0.Protocol
	v407 = version.Minecraft_1_16_0.Protocol
	v422 = version.Minecraft_1_16_200.Protocol
	v428 = version.Minecraft_1_16_210.Protocol
	v475 = version.Minecraft_1_18_0.Protocol
	v503 = version.Minecraft_1_18_30.Protocol
	v544 = version.Minecraft_1_19_20.Protocol
	v554 = version.Minecraft_1_19_30.Protocol
)

func since(v ...proto.Protocol) []proto.Protocol { return v }

// Definitions returns the version chains of every Bedrock packet the bridge knows.
func Definitions() [][]codec.Definition {
	return [][]codec.Definition{
		codec.Since(IDLogin, "Login", v291, login),
		codec.Since(IDPlayStatus, "PlayStatus", v291, playStatus),
		codec.Since(IDDisconnect, "Disconnect", v291, disconnect),
		codec.Since(IDText, "Text", v291, text),
		codec.Since(IDUpdateBlock, "UpdateBlock", v291, updateBlock),
		codec.Since(IDBlockActorData, "BlockActorData", v291, blockActorData),
		codec.Chain(IDMapInfoRequest, "MapInfoRequest", since(v291, v503),
			mapInfoRequest291, mapInfoRequest503),
		codec.Since(IDTransfer, "Transfer", v291, transfer),
		codec.Since(IDModalFormRequest, "ModalFormRequest", v291, modalFormRequest),
		codec.Chain(IDModalFormResponse, "ModalFormResponse", since(v291, v544),
			modalFormResponse291, modalFormResponse544),
		codec.Since(IDSetLocalPlayerAsInitialized, "SetLocalPlayerAsInitialized", v291, setLocalPlayerAsInitialized),
		codec.Chain(IDNetworkSettings, "NetworkSettings", since(v407, v554),
			networkSettings407, networkSettings554),
		codec.Chain(IDItemStackResponse, "ItemStackResponse", since(v407, v422, v428),
			stackItem407.codec(), stackItem422.codec(), stackItem428.codec()),
		// older clients send Login first
		codec.Partial(codec.Since(IDRequestNetworkSettings, "RequestNetworkSettings", v554, requestNetworkSettings)),

		codec.Since(IDNeteasePythonRpc, "NeteasePythonRpc", v475, neteasePythonRpc),
		codec.Since(IDNeteaseMarketOpen, "NeteaseMarketOpen", v475, neteaseMarketOpen),
		codec.Since(IDNeteaseMarketReceive, "NeteaseMarketReceive", v475, neteaseMarketReceive),
		codec.Since(IDConfirmSkin, "ConfirmSkin", v475, confirmSkin),
	}
}
