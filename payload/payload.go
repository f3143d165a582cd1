// Package payload defines the example messages exchanged by the demo
// scenario: entity transforms, player commands and score updates.
package payload

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/interp"
	"github.com/sarchlab/netsync/timing"
)

// Action codes of the example messages.
const (
	ActionTransform uint8 = 10
	ActionCommand   uint8 = 11
	ActionScore     uint8 = 12
)

// Axis indexes the channels of one entity.
type Axis int

// Axes of a transform.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisRotation

	axesPerEntity
)

// Channel returns the interpolation channel of one axis of an entity.
func Channel(entity uint16, axis Axis) interp.Channel {
	return interp.Channel(int(entity)*int(axesPerEntity) + int(axis))
}

// Register adds the example messages to reg.
func Register(reg *codec.Registry) {
	reg.Register(codec.ClassData, ActionTransform, func() codec.Message {
		return &Transform{}
	})
	reg.Register(codec.ClassData, ActionCommand, func() codec.Message {
		return &Command{}
	})
	reg.Register(codec.ClassData, ActionScore, func() codec.Message {
		return &Score{}
	})
}

// NewRegistry creates a registry that knows the example messages.
func NewRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	Register(reg)

	return reg
}

// Transform is the position and heading of an entity.
type Transform struct {
	Entity   uint16
	X, Y, Z  float64
	Rotation float64
}

// ByteLength returns 34.
func (t *Transform) ByteLength() int {
	return 2 + 4*8
}

// Serialize writes the entity id then the four coordinates.
func (t *Transform) Serialize(w *codec.Writer) {
	w.WriteUint16(t.Entity)
	w.WriteFloat64(t.X)
	w.WriteFloat64(t.Y)
	w.WriteFloat64(t.Z)
	w.WriteFloat64(t.Rotation)
}

// Deserialize reads the fields written by Serialize.
func (t *Transform) Deserialize(r *codec.Reader) error {
	t.Entity = r.ReadUint16()
	t.X = r.ReadFloat64()
	t.Y = r.ReadFloat64()
	t.Z = r.ReadFloat64()
	t.Rotation = r.ReadFloat64()

	return r.Err()
}

// Record folds the transform into an update record stamped ts.
func (t *Transform) Record(ts timing.VTimeInSec) interp.UpdateRecord {
	return interp.UpdateRecord{
		Timestamp: ts,
		Values: map[interp.Channel]float64{
			Channel(t.Entity, AxisX):        t.X,
			Channel(t.Entity, AxisY):        t.Y,
			Channel(t.Entity, AxisZ):        t.Z,
			Channel(t.Entity, AxisRotation): t.Rotation,
		},
	}
}

// Command is an instruction from a player.
type Command struct {
	Code   uint8
	Target uint16
	Amount int32
}

// ByteLength returns 7.
func (c *Command) ByteLength() int {
	return 1 + 2 + 4
}

// Serialize writes code, target and amount.
func (c *Command) Serialize(w *codec.Writer) {
	w.WriteUint8(c.Code)
	w.WriteUint16(c.Target)
	w.WriteInt32(c.Amount)
}

// Deserialize reads the fields written by Serialize.
func (c *Command) Deserialize(r *codec.Reader) error {
	c.Code = r.ReadUint8()
	c.Target = r.ReadUint16()
	c.Amount = r.ReadInt32()

	return r.Err()
}

// Score reports the points of a player in a round.
type Score struct {
	Player uint8
	Round  uint16
	Points int32
}

// ByteLength returns 7.
func (s *Score) ByteLength() int {
	return 1 + 2 + 4
}

// Serialize writes player, round and points.
func (s *Score) Serialize(w *codec.Writer) {
	w.WriteUint8(s.Player)
	w.WriteUint16(s.Round)
	w.WriteInt32(s.Points)
}

// Deserialize reads the fields written by Serialize.
func (s *Score) Deserialize(r *codec.Reader) error {
	s.Player = r.ReadUint8()
	s.Round = r.ReadUint16()
	s.Points = r.ReadInt32()

	return r.Err()
}
