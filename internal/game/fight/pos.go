package fight

import "fmt"

// Area is where a positioned card lives.
type Area string

const (
	AreaField Area = "field"
	AreaHand  Area = "hand"
)

// Pos addresses a card by area, side and index. Cards have no stable identity;
// indices shift when cards before them leave the hand.
type Pos struct {
	Area  Area `json:"area"`
	Side  Side `json:"side"`
	Index int  `json:"index"`
}

// FieldPos addresses a lane on side's field.
func FieldPos(side Side, lane int) Pos {
	return Pos{Area: AreaField, Side: side, Index: lane}
}

// HandPos addresses a card in side's hand.
func HandPos(side Side, index int) Pos {
	return Pos{Area: AreaHand, Side: side, Index: index}
}

// Opposing returns the field slot across the lane from a field position.
func (p Pos) Opposing() Pos {
	return FieldPos(p.Side.Other(), p.Index)
}

func (p Pos) String() string {
	return fmt.Sprintf("%s/%s/%d", p.Area, p.Side, p.Index)
}
