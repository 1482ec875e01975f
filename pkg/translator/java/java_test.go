package java

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/blocks"
	bproto "go.minekube.com/bridge/pkg/edition/bedrock/proto"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/internal/future"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/session/cache"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/translator"
	"go.minekube.com/bridge/pkg/util/uuid"
)

const blocksYAML = `
skullStates:
  floor: 100
  wall: 200
blocks:
  - name: copper_machine
    runtimeId: 10250
    neteaseFaceDirectional: 1
  - name: ruby_ore
    runtimeId: 10262
    skinHash: 5a1f8c0b
`

type recorder struct {
	mu      sync.Mutex
	packets []proto.Packet
}

func (r *recorder) WritePacket(p proto.Packet) error {
	r.mu.Lock()
	r.packets = append(r.packets, p)
	r.mu.Unlock()
	return nil
}

func (r *recorder) all() []proto.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]proto.Packet(nil), r.packets...)
}

// fakeSkins records lookups and answers them with pending futures.
type fakeSkins struct {
	mu      sync.Mutex
	calls   atomic.Int32
	pending map[string]*future.Future[future.Outcome[skin.Textures]]
}

func (f *fakeSkins) lookup(key string) *future.Future[future.Outcome[skin.Textures]] {
	f.calls.Inc()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = map[string]*future.Future[future.Outcome[skin.Textures]]{}
	}
	fut, ok := f.pending[key]
	if !ok {
		fut = future.New[future.Outcome[skin.Textures]]()
		f.pending[key] = fut
	}
	return fut
}

func (f *fakeSkins) ByUUID(id uuid.UUID) *future.Future[future.Outcome[skin.Textures]] {
	return f.lookup(id.String())
}

func (f *fakeSkins) ByName(name string) *future.Future[future.Outcome[skin.Textures]] {
	return f.lookup(name)
}

func (f *fakeSkins) complete(key string, o future.Outcome[skin.Textures]) {
	f.lookup(key).Complete(o)
	f.calls.Dec()
}

type harness struct {
	s        *session.Session
	d        *translator.Dispatcher
	skins    *fakeSkins
	up, down *recorder
}

func newHarness(t *testing.T) *harness {
	path := filepath.Join(t.TempDir(), "blocks.yml")
	require.NoError(t, os.WriteFile(path, []byte(blocksYAML), 0o644))
	reg := blocks.NewRegistry(path, nil, testr.New(t))
	require.NoError(t, reg.Load())
	bedrock, err := bproto.NewRegistry()
	require.NoError(t, err)

	h := &harness{skins: &fakeSkins{}, up: &recorder{}, down: &recorder{}}
	r, err := Register(translator.NewBuilder(), Options{Blocks: reg, Skins: h.skins, Bedrock: bedrock}).Build()
	require.NoError(t, err)
	h.d = translator.NewDispatcher(r, "downstream")
	h.s = session.New(context.Background(), session.Options{
		Protocol: version.Default.Protocol,
		Upstream: h.up,
		Logger:   testr.New(t),
	})
	h.s.SetDownstream(h.down)
	h.s.Advance(session.Spawned)
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) dispatch(t *testing.T, pks ...proto.Packet) {
	t.Helper()
	for _, p := range pks {
		h.d.Dispatch(h.s, &proto.PacketContext{Kind: p.Kind(), Packet: p})
	}
	h.await(t)
}

func (h *harness) await(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	if !h.s.Submit(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session loop stuck")
	}
}

func blockUpdates(t *testing.T, r *recorder) []*bpacket.UpdateBlock {
	t.Helper()
	var updates []*bpacket.UpdateBlock
	for _, p := range r.all() {
		if u, ok := p.(*bpacket.UpdateBlock); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

func blockEntities(t *testing.T, r *recorder) []*bpacket.BlockActorData {
	t.Helper()
	var entities []*bpacket.BlockActorData
	for _, p := range r.all() {
		if e, ok := p.(*bpacket.BlockActorData); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

func texturesValue(skinURL string) string {
	return base64.StdEncoding.EncodeToString([]byte(`{"textures":{"SKIN":{"url":"` + skinURL + `"}}}`))
}

func skull(pos packet.BlockPos, owner map[string]any) *packet.BlockEntityData {
	data := map[string]any{}
	if owner != nil {
		data["SkullOwner"] = owner
	}
	return &packet.BlockEntityData{Position: pos, Type: packet.BlockEntitySkull, Data: data}
}

func TestCustomSkullSkipsTextureLookup(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{X: 4, Y: 64, Z: -9}

	h.dispatch(t,
		&packet.BlockUpdate{Position: pos, BlockState: 100 + 16 + 4}, // floor, rotation 4
		skull(pos, map[string]any{
			"Name": "geyser_custom_block_Copper_Machine",
			"Id":   []int32{1, 2, 3, 4},
			"Properties": map[string]any{"textures": []any{
				map[string]any{"Value": texturesValue("http://textures.minecraft.net/texture/5a1f8c0b")},
			}},
		}),
	)

	assert.Zero(t, h.skins.calls.Load())
	sk, ok := h.s.Skulls.Get(cache.Position{X: 4, Y: 64, Z: -9})
	require.True(t, ok)
	assert.Equal(t, "copper_machine", sk.CustomName)
	assert.Nil(t, sk.Textures)

	updates := blockUpdates(t, h.up)
	require.Len(t, updates, 1)
	assert.Equal(t, bpacket.BlockPos{4, 64, -9}, updates[0].Position)
	assert.Equal(t, uint32(10253), updates[0].NewBlockRuntime)
	assert.Equal(t, uint32(3), updates[0].Flags)

	entities := blockEntities(t, h.up)
	require.Len(t, entities, 1)
	assert.Equal(t, bpacket.BlockPos{4, 64, -9}, entities[0].Position)
	assert.Equal(t, "Skull", entities[0].NBTData["id"])
	assert.Equal(t, float32(90), entities[0].NBTData["Rotation"])
	assert.Equal(t, sk.UniqueID, entities[0].NBTData["UniqueId"])
}

func TestSkullEntityKeepsUniqueIDForSameOwner(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{X: 5}
	h.dispatch(t,
		skull(pos, map[string]any{"Name": "heypixel:copper_machine"}),
		skull(pos, map[string]any{"Name": "heypixel:copper_machine"}),
		skull(pos, map[string]any{"Name": "heypixel:ruby_ore"}),
	)

	entities := blockEntities(t, h.up)
	require.Len(t, entities, 3)
	first := entities[0].NBTData["UniqueId"]
	assert.NotZero(t, first)
	assert.Equal(t, first, entities[1].NBTData["UniqueId"])
	assert.NotEqual(t, first, entities[2].NBTData["UniqueId"])
}

func TestPlayerSkullBySkinHash(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{Y: 70}

	h.dispatch(t, skull(pos, map[string]any{
		"Name": "Notch",
		"Properties": map[string]any{"textures": []any{
			map[string]any{"Value": texturesValue("http://textures.minecraft.net/texture/5a1f8c0b")},
		}},
	}))

	assert.Zero(t, h.skins.calls.Load())
	sk, ok := h.s.Skulls.Get(cache.Position{Y: 70})
	require.True(t, ok)
	require.NotNil(t, sk.Textures)
	assert.True(t, sk.Textures.Ok())
	assert.Equal(t, uuid.Derive("", "notch"), sk.Owner)
	assert.Equal(t, int32(10262), sk.CustomRuntimeID)

	updates := blockUpdates(t, h.up)
	require.Len(t, updates, 1)
	assert.Equal(t, uint32(10262), updates[0].NewBlockRuntime)
}

func TestSkullResolvedAfterLookup(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ints := [4]int32{}
	for i := range ints {
		ints[i] = int32(uint32(owner[i*4])<<24 | uint32(owner[i*4+1])<<16 | uint32(owner[i*4+2])<<8 | uint32(owner[i*4+3]))
	}
	pos := packet.BlockPos{X: 1}

	h.dispatch(t, skull(pos, map[string]any{"Name": faker.Username(), "Id": ints[:]}))
	assert.Equal(t, int32(1), h.skins.calls.Load())
	assert.Empty(t, blockUpdates(t, h.up))

	h.skins.complete(owner.String(), future.Resolved(skin.Textures{
		SkinURL: "https://textures.minecraft.net/texture/5a1f8c0b",
	}))
	h.await(t)

	updates := blockUpdates(t, h.up)
	require.Len(t, updates, 1)
	assert.Equal(t, uint32(10262), updates[0].NewBlockRuntime)
}

func TestSkullReplacedWhileResolving(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{Z: 3}

	h.dispatch(t, skull(pos, map[string]any{"Name": "jeb_"}))
	require.Equal(t, int32(1), h.skins.calls.Load())
	h.dispatch(t, skull(pos, map[string]any{"Name": "heypixel:ruby_ore"}))
	require.Len(t, blockUpdates(t, h.up), 1)

	h.skins.complete("jeb_", future.Resolved(skin.Textures{SkinURL: "https://x/5a1f8c0b"}))
	h.await(t)

	assert.Len(t, blockUpdates(t, h.up), 1)
	sk, ok := h.s.Skulls.Get(cache.Position{Z: 3})
	require.True(t, ok)
	assert.Equal(t, "ruby_ore", sk.CustomName)
}

func TestFailedLookupKeepsSkullUnresolved(t *testing.T) {
	h := newHarness(t)
	h.dispatch(t, skull(packet.BlockPos{}, map[string]any{"Name": "Dinnerbone"}))
	h.skins.complete("Dinnerbone", future.Unresolved[skin.Textures](skin.ErrNotFound))
	h.await(t)

	sk, ok := h.s.Skulls.Get(cache.Position{})
	require.True(t, ok)
	require.NotNil(t, sk.Textures)
	assert.ErrorIs(t, sk.Textures.Err, proto.ErrLookupFailed)
	assert.Equal(t, cache.Unresolved, sk.CustomRuntimeID)
	assert.Empty(t, blockUpdates(t, h.up))
	assert.False(t, h.s.Closed())
}

func TestSkullOwnerRemoved(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{X: 8}
	h.dispatch(t, skull(pos, map[string]any{"Name": "heypixel:copper_machine"}))
	require.Equal(t, 1, h.s.Skulls.Len())

	h.dispatch(t, skull(pos, nil))
	assert.Zero(t, h.s.Skulls.Len())
}

func TestBlockUpdate(t *testing.T) {
	h := newHarness(t)
	pos := packet.BlockPos{X: 2}
	h.dispatch(t,
		&packet.BlockUpdate{Position: pos, BlockState: 200}, // wall facing north
		skull(pos, map[string]any{"Name": "heypixel:copper_machine"}),
	)
	updates := blockUpdates(t, h.up)
	require.Len(t, updates, 1)
	assert.Equal(t, uint32(10252), updates[0].NewBlockRuntime)

	// facing east
	h.dispatch(t, &packet.BlockUpdate{Position: pos, BlockState: 206})
	updates = blockUpdates(t, h.up)
	require.Len(t, updates, 2)
	assert.Equal(t, uint32(10253), updates[1].NewBlockRuntime)

	// broken
	h.dispatch(t, &packet.BlockUpdate{Position: pos, BlockState: 0})
	assert.Zero(t, h.s.Skulls.Len())
	_, ok := h.s.Skulls.State(cache.Position{X: 2})
	assert.False(t, ok)
}

func TestPlayerInfo(t *testing.T) {
	h := newHarness(t)
	offline := uuid.Derive("", "steve")
	online := uuid.New()

	h.dispatch(t, &packet.PlayerInfoUpdate{
		Actions: packet.AddPlayer | packet.UpdateListed | packet.UpdateLatency,
		Entries: []packet.PlayerInfoEntry{
			{ProfileID: offline, Name: "Steve", Listed: true, Latency: 20, Properties: []packet.ProfileProperty{
				{Name: "textures", Value: texturesValue("http://textures.minecraft.net/texture/abc")},
			}},
			{ProfileID: online, Name: "Alex", Listed: true},
		},
	})
	assert.Equal(t, 2, h.s.PlayerList.Len())
	steve, ok := h.s.PlayerList.Get(offline)
	require.True(t, ok)
	require.NotNil(t, steve.Skin)
	assert.Equal(t, "https://textures.minecraft.net/texture/abc", steve.Skin.SkinURL)
	assert.Equal(t, int32(20), steve.Latency)
	assert.Equal(t, int32(1), h.skins.calls.Load())

	h.skins.complete(online.String(), future.Resolved(skin.Textures{SkinURL: "https://x/def", Model: skin.Slim}))
	h.dispatch(t, &packet.PlayerInfoUpdate{
		Actions: packet.UpdateLatency,
		Entries: []packet.PlayerInfoEntry{{ProfileID: online, Latency: 150}},
	})
	alex, ok := h.s.PlayerList.Get(online)
	require.True(t, ok)
	require.NotNil(t, alex.Skin)
	assert.Equal(t, skin.Slim, alex.Skin.Model)
	assert.Equal(t, int32(150), alex.Latency)
	assert.True(t, alex.Listed)

	h.dispatch(t, &packet.PlayerInfoRemove{PlayerIDs: []uuid.UUID{offline, online}})
	assert.Zero(t, h.s.PlayerList.Len())
}

func TestSkullOfListedPlayerUsesResolvedSkin(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	h.dispatch(t, &packet.PlayerInfoUpdate{
		Actions: packet.AddPlayer,
		Entries: []packet.PlayerInfoEntry{{ProfileID: owner, Name: "Alex", Properties: []packet.ProfileProperty{
			{Name: "textures", Value: texturesValue("http://textures.minecraft.net/texture/5a1f8c0b")},
		}}},
	})

	var ints [4]int32
	for i := range ints {
		ints[i] = int32(binary.BigEndian.Uint32(owner[i*4:]))
	}
	h.dispatch(t, skull(packet.BlockPos{Y: 12}, map[string]any{"Name": "Alex", "Id": ints[:]}))

	assert.Zero(t, h.skins.calls.Load())
	updates := blockUpdates(t, h.up)
	require.Len(t, updates, 1)
	assert.Equal(t, uint32(10262), updates[0].NewBlockRuntime)
}

func TestFormRequest(t *testing.T) {
	h := newHarness(t)
	data := append([]byte{1, 0, 42}, `{"type":"modal"}`...)

	h.dispatch(t, &packet.PluginMessage{Channel: translator.ChannelForm, Data: data})
	assert.Empty(t, h.up.all())
	forms := h.s.Forms.Pending()
	require.Len(t, forms, 1)
	assert.Equal(t, uint16(42), forms[0].JavaID)
	assert.Equal(t, byte(1), forms[0].Type)

	h.s.Initialize()
	h.dispatch(t, &packet.PluginMessage{Channel: translator.ChannelForm, Data: data})
	up := h.up.all()
	require.Len(t, up, 1)
	assert.Equal(t, `{"type":"modal"}`, up[0].(*bpacket.ModalFormRequest).FormData)

	// malformed forms are dropped
	h.dispatch(t, &packet.PluginMessage{Channel: translator.ChannelForm, Data: []byte{1}})
	assert.Len(t, h.s.Forms.Pending(), 2)
	assert.False(t, h.s.Closed())
}

func TestTransfer(t *testing.T) {
	h := newHarness(t)
	data := append([]byte{0, 0, 0x4a, 0xbc}, "play.example.com"...)
	h.dispatch(t,
		&packet.PluginMessage{Channel: translator.ChannelTransfer, Data: data},
		&packet.PluginMessage{Channel: translator.ChannelTransfer, Data: []byte{0, 0, 0, 0}},
	)
	up := h.up.all()
	require.Len(t, up, 1)
	assert.Equal(t, &bpacket.Transfer{Address: "play.example.com", Port: 19132}, up[0])
}

func TestPluginPacket(t *testing.T) {
	h := newHarness(t)
	bedrock, err := bproto.NewRegistry()
	require.NoError(t, err)
	table, err := bedrock.Resolve(version.Default.Protocol)
	require.NoError(t, err)
	c, ok := table.Codec(bpacket.IDNeteaseMarketOpen)
	require.True(t, ok)

	w := cursor.NewWriter(32)
	w.WriteRaw([]byte{0, 0, 0, byte(bpacket.IDNeteaseMarketOpen)})
	require.NoError(t, c.Encode(w, &bpacket.NeteaseMarketOpen{Category: "skins", EventName: "open"}))

	h.dispatch(t,
		&packet.PluginMessage{Channel: translator.ChannelPacket, Data: w.Bytes()},
		&packet.PluginMessage{Channel: translator.ChannelPacket, Data: []byte{0, 0, 0, byte(bpacket.IDLogin)}},
	)
	up := h.up.all()
	require.Len(t, up, 1)
	assert.Equal(t, &bpacket.NeteaseMarketOpen{Category: "skins", EventName: "open"}, up[0])
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	p := &packet.Disconnect{Reason: `{"text":"Server closed"}`}
	require.True(t, h.d.Dispatch(h.s, &proto.PacketContext{Kind: p.Kind(), Packet: p}))

	assert.Eventually(t, h.s.Closed, time.Second, time.Millisecond)
	up := h.up.all()
	require.Len(t, up, 1)
	assert.Equal(t, "Server closed", up[0].(*bpacket.Disconnect).Message)
}

func TestKeepAlive(t *testing.T) {
	h := newHarness(t)
	h.dispatch(t, &packet.KeepAlive{RandomID: 77})
	assert.Equal(t, []proto.Packet{&packet.KeepAlive{RandomID: 77}}, h.down.all())
}

func TestSystemChat(t *testing.T) {
	h := newHarness(t)
	h.dispatch(t,
		&packet.SystemChat{Content: `{"text":"Welcome","color":"gold"}`},
		&packet.SystemChat{Content: `{"text":"Low health"}`, Overlay: true},
	)
	up := h.up.all()
	require.Len(t, up, 2)
	chat := up[0].(*bpacket.Text)
	assert.Equal(t, bpacket.TextTypeRaw, chat.TextType)
	assert.Contains(t, chat.Message, "§6")
	assert.Contains(t, chat.Message, "Welcome")
	assert.Equal(t, &bpacket.Text{TextType: bpacket.TextTypeTip, Message: "Low health"}, up[1])
}
