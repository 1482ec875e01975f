package packet

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// SetLocalPlayerAsInitialized is sent by the client once it has fully loaded the local player.
type SetLocalPlayerAsInitialized struct {
	EntityRuntimeID uint64
}

func (*SetLocalPlayerAsInitialized) Kind() proto.Kind { return IDSetLocalPlayerAsInitialized }

var setLocalPlayerAsInitialized = codec.Func(func(c *cursor.Cursor, p *SetLocalPlayerAsInitialized) {
	c.WriteVaruint64(p.EntityRuntimeID)
}, func(c *cursor.Cursor) (p *SetLocalPlayerAsInitialized, err error) {
	p = new(SetLocalPlayerAsInitialized)
	p.EntityRuntimeID, err = c.Varuint64()
	return
})

// ModalFormRequest shows a form to the client.
type ModalFormRequest struct {
	FormID   uint32
	FormData string
}

func (*ModalFormRequest) Kind() proto.Kind { return IDModalFormRequest }

var modalFormRequest = codec.Func(func(c *cursor.Cursor, p *ModalFormRequest) {
	c.WriteVaruint32(p.FormID)
	c.WriteString(p.FormData)
}, func(c *cursor.Cursor) (p *ModalFormRequest, err error) {
	defer cursor.Recover(&err)
	p = new(ModalFormRequest)
	r := cursor.PanicReader(c)
	r.Varuint32(&p.FormID)
	r.String(&p.FormData)
	return
})

// Reasons a client cancels a form since 1.19.20.
const (
	FormCancelUserClosed uint8 = iota
	FormCancelUserBusy
)

// ModalFormResponse is the client's answer to a ModalFormRequest.
type ModalFormResponse struct {
	FormID uint32
	// ResponseData is the json response, empty if the form was closed.
	ResponseData string
	// Fields below exist since 1.19.20.
	Cancelled    bool
	CancelReason uint8
}

func (*ModalFormResponse) Kind() proto.Kind { return IDModalFormResponse }

var modalFormResponse291 = codec.Func(func(c *cursor.Cursor, p *ModalFormResponse) {
	c.WriteVaruint32(p.FormID)
	c.WriteString(p.ResponseData)
}, func(c *cursor.Cursor) (p *ModalFormResponse, err error) {
	defer cursor.Recover(&err)
	p = new(ModalFormResponse)
	r := cursor.PanicReader(c)
	r.Varuint32(&p.FormID)
	r.String(&p.ResponseData)
	return
})

var modalFormResponse544 = codec.Func(func(c *cursor.Cursor, p *ModalFormResponse) {
	c.WriteVaruint32(p.FormID)
	c.WriteBool(p.ResponseData != "")
	if p.ResponseData != "" {
		c.WriteString(p.ResponseData)
	}
	c.WriteBool(p.Cancelled)
	if p.Cancelled {
		c.WriteUint8(p.CancelReason)
	}
}, func(c *cursor.Cursor) (p *ModalFormResponse, err error) {
	defer cursor.Recover(&err)
	p = new(ModalFormResponse)
	r := cursor.PanicReader(c)
	r.Varuint32(&p.FormID)
	var ok bool
	if r.Bool(&ok); ok {
		r.String(&p.ResponseData)
	}
	if r.Bool(&p.Cancelled); p.Cancelled {
		r.Uint8(&p.CancelReason)
	}
	return
})

// Transfer sends the client to another server.
type Transfer struct {
	Address string
	Port    uint16
}

func (*Transfer) Kind() proto.Kind { return IDTransfer }

var transfer = codec.Func(func(c *cursor.Cursor, p *Transfer) {
	c.WriteString(p.Address)
	c.WriteUint16(binary.LittleEndian, p.Port)
}, func(c *cursor.Cursor) (p *Transfer, err error) {
	defer cursor.Recover(&err)
	p = new(Transfer)
	r := cursor.PanicReader(c)
	r.String(&p.Address)
	r.Uint16(binary.LittleEndian, &p.Port)
	return
})
