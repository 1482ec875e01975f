package blocks

import "fmt"

// SkullStates locates the Java block states of player heads.
// Since 1.20 a floor head has 32 states ordered by powered (true first)
// then rotation, and a wall head has 8 states ordered by facing
// (north, south, west, east) then powered.
// A zero value means unconfigured.
type SkullStates struct {
	Floor int32 `yaml:"floor,omitempty"` // first state of minecraft:player_head
	Wall  int32 `yaml:"wall,omitempty"`  // first state of minecraft:player_wall_head
}

const (
	floorStates = 32
	wallStates  = 8
)

func (s SkullStates) validate() error {
	if s.Floor < 0 || s.Wall < 0 {
		return fmt.Errorf("invalid skull states %+v", s)
	}
	if s.Floor != 0 && s.Wall != 0 &&
		s.Floor < s.Wall+wallStates && s.Wall < s.Floor+floorStates {
		return fmt.Errorf("skull states overlap: floor %d, wall %d", s.Floor, s.Wall)
	}
	return nil
}

// Configured reports whether skull states are known.
func (s SkullStates) Configured() bool { return s.Floor != 0 || s.Wall != 0 }

// Skull is the placement of a player head.
type Skull struct {
	Wall bool
	// FloorRotation is the 0..15 rotation of a floor head.
	FloorRotation int32
	// WallDirection is the facing of a wall head in degrees,
	// south 0, west 90, north 180, east 270.
	WallDirection int32
}

// wall facing order of the Java block states
var wallDirections = [4]int32{180, 0, 90, 270}

// Skull classifies a Java block state. It reports false if the state
// is no player head or the skull states are unconfigured.
func (s SkullStates) Skull(state int32) (Skull, bool) {
	if s.Floor != 0 && state >= s.Floor && state < s.Floor+floorStates {
		return Skull{FloorRotation: (state - s.Floor) % 16}, true
	}
	if s.Wall != 0 && state >= s.Wall && state < s.Wall+wallStates {
		return Skull{Wall: true, WallDirection: wallDirections[(state-s.Wall)/2]}, true
	}
	return Skull{}, false
}

// Rotation returns the facing state offset 0..3 of a directional custom block
// displayed at the skull's placement.
func (k Skull) Rotation() int32 {
	if k.Wall {
		return WallRotation(k.WallDirection)
	}
	return FloorRotation(k.FloorRotation)
}

// WallRotation maps a wall head direction in degrees to the facing offset:
// south 0, west 1, north 2, east 3. Unknown directions map to 0.
func WallRotation(degrees int32) int32 {
	switch degrees {
	case 90:
		return 1
	case 180:
		return 2
	case 270:
		return 3
	}
	return 0
}

// FloorRotation maps a 0..15 floor head rotation to the facing offset
// of the quarter it points to.
func FloorRotation(r int32) int32 {
	if r == 15 {
		r = 0
	} else {
		r++
	}
	return ((r / 4) + 2) % 4
}
