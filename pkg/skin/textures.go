// Package skin resolves the skin and cape textures of Java edition profiles.
package skin

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.minekube.com/bridge/pkg/util/uuid"
)

// Model is the arm model of a skin.
type Model uint8

const (
	Classic Model = iota // Steve, 4 pixel wide arms
	Slim                 // Alex, 3 pixel wide arms
)

func (m Model) String() string {
	if m == Slim {
		return "slim"
	}
	return "classic"
}

// Geometry returns the Bedrock geometry name of the model.
func (m Model) Geometry() string {
	if m == Slim {
		return "geometry.humanoid.customSlim"
	}
	return "geometry.humanoid.custom"
}

// DefaultModel returns the model of the default skin of a player without textures.
// It matches the Java edition client, which picks Alex for odd UUID hashes.
func DefaultModel(id uuid.UUID) Model {
	hilo := binary.BigEndian.Uint64(id[:8]) ^ binary.BigEndian.Uint64(id[8:])
	if (uint32(hilo>>32)^uint32(hilo))&1 == 1 {
		return Slim
	}
	return Classic
}

// Textures are the decoded textures property of a profile.
type Textures struct {
	SkinURL string
	Model   Model
	CapeURL string // empty without cape
	// Value is the encoded property the textures were decoded from.
	Value string
}

// SkinHash returns the texture hash of the skin, the last segment of its url.
func (t Textures) SkinHash() string {
	if t.SkinURL == "" {
		return ""
	}
	return path.Base(t.SkinURL)
}

// ErrNoSkin is returned when a textures property has no skin.
var ErrNoSkin = errors.New("textures have no skin")

type texturesJSON struct {
	Textures *struct {
		Skin *struct {
			URL      string          `json:"url"`
			Metadata json.RawMessage `json:"metadata"`
		} `json:"SKIN"`
		Cape *struct {
			URL string `json:"url"`
		} `json:"CAPE"`
	} `json:"textures"`

	// Bedrock skins uploaded by a skin service.
	PE   json.RawMessage `json:"pe"`
	Data string          `json:"data"`
	Alex bool            `json:"alex"`
}

// Decode decodes the base64 encoded textures property value of a profile.
func Decode(value string) (Textures, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		// some services strip the padding
		if b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(value, "=")); err != nil {
			return Textures{}, fmt.Errorf("error decoding textures base64: %w", err)
		}
	}
	var v texturesJSON
	if err = json.Unmarshal(b, &v); err != nil {
		return Textures{}, fmt.Errorf("error unmarshal textures: %w", err)
	}
	t := Textures{Value: value}
	if len(v.PE) != 0 && string(v.PE) != "null" {
		t.SkinURL = v.Data
		if v.Alex {
			t.Model = Slim
		}
		return t, nil
	}
	if v.Textures == nil || v.Textures.Skin == nil {
		return Textures{}, ErrNoSkin
	}
	t.SkinURL = secure(v.Textures.Skin.URL)
	if len(v.Textures.Skin.Metadata) != 0 {
		t.Model = Slim
	}
	if v.Textures.Cape != nil {
		t.CapeURL = secure(v.Textures.Cape.URL)
	}
	return t, nil
}

func secure(url string) string {
	return strings.Replace(url, "http://", "https://", 1)
}
