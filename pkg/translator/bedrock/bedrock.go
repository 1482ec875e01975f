// Package bedrock translates the packets Bedrock clients send to the Java server.
package bedrock

import (
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	jpacket "go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/translator"
	"go.minekube.com/bridge/pkg/util/errs"
)

// Names of the Bedrock packets forwarded on translator.ChannelCustom.
// Server plugins identify them by the packet id and this name.
const (
	setLocalPlayerAsInitializedName = "SET_LOCAL_PLAYER_AS_INITIALIZED"
	neteaseMarketReceiveName        = "NeteaseMarketReceivePacket"
)

// emptyFormResponse is the response data of closed forms.
const emptyFormResponse = "null"

// Register registers the translators of client packets.
func Register(b *translator.Builder) *translator.Builder {
	translator.Register(b, setLocalPlayerAsInitialized)
	translator.Register(b, modalFormResponse)
	translator.Register(b, mapInfoRequest, translator.RequiresSpawned())
	translator.Register(b, neteaseMarketReceive, translator.RequiresSpawned())
	translator.Register(b, neteasePythonRpc, translator.RequiresSpawned())
	return b
}

// setLocalPlayerAsInitialized tells server plugins that the client loaded the
// player and shows the forms the server sent while it was loading.
func setLocalPlayerAsInitialized(s *session.Session, p *packet.SetLocalPlayerAsInitialized) error {
	if p.EntityRuntimeID != s.RuntimeID() {
		s.Log().V(1).Info("ignoring initialization of foreign entity", "runtimeID", p.EntityRuntimeID)
		return nil
	}
	if s.State() < session.Spawned || !s.Initialize() {
		return nil
	}
	data, err := translator.NewPluginWriter().
		Int32(int32(packet.IDSetLocalPlayerAsInitialized)).
		UTF(setLocalPlayerAsInitializedName).
		UTF(s.Identity().UUID.String()).
		Bytes()
	if err != nil {
		return err
	}
	if err = s.SendDownstream(&jpacket.PluginMessage{Channel: translator.ChannelCustom, Data: data}); err != nil {
		return err
	}
	for _, f := range s.Forms.Pending() {
		if err = s.SendUpstream(&packet.ModalFormRequest{FormID: f.ID, FormData: f.Data}); err != nil {
			return err
		}
	}
	return nil
}

func modalFormResponse(s *session.Session, p *packet.ModalFormResponse) error {
	f, ok := s.Forms.Take(p.FormID)
	if !ok {
		s.Log().V(1).Info("response to unknown form", "formID", p.FormID)
		return nil
	}
	response := p.ResponseData
	if p.Cancelled || response == "" {
		response = emptyFormResponse
	}
	data, err := translator.NewPluginWriter().
		Uint16(f.JavaID).
		Raw([]byte(response)).
		Bytes()
	if err != nil {
		return err
	}
	return s.SendDownstream(&jpacket.PluginMessage{Channel: translator.ChannelForm, Data: data})
}

func mapInfoRequest(s *session.Session, p *packet.MapInfoRequest) error {
	data, err := translator.NewPluginWriter().Int64(p.MapID).Bytes()
	if err != nil {
		return err
	}
	return s.SendDownstream(&jpacket.PluginMessage{Channel: translator.ChannelMap, Data: data})
}

func neteaseMarketReceive(s *session.Session, _ *packet.NeteaseMarketReceive) error {
	data, err := translator.NewPluginWriter().
		Int32(int32(packet.IDNeteaseMarketReceive)).
		UTF(neteaseMarketReceiveName).
		Bytes()
	if err != nil {
		return err
	}
	return s.SendDownstream(&jpacket.PluginMessage{Channel: translator.ChannelCustom, Data: data})
}

func neteasePythonRpc(s *session.Session, p *packet.NeteasePythonRpc) error {
	if len(p.Payload) == 0 {
		return errs.NewSilentErr("empty python rpc payload")
	}
	return s.SendDownstream(&jpacket.PluginMessage{Channel: translator.ChannelModSDK, Data: p.Payload})
}
