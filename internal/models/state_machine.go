package models

import "fmt"

// Side is the inventory direction derived from the sign of the position.
type Side string

const (
	SideFlat  Side = "flat"
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SideOf returns the side for a signed position.
func SideOf(position int) Side {
	switch {
	case position > 0:
		return SideLong
	case position < 0:
		return SideShort
	default:
		return SideFlat
	}
}

// SideTransition defines a valid per-bar side change and the order that may cause it.
type SideTransition struct {
	From        Side
	To          Side
	Order       Order
	Description string
}

// ValidSideTransitions lists every side change a single bar may produce.
// Each order moves the position by exactly one unit, so a bar can never flip long to short.
var ValidSideTransitions = []SideTransition{
	{SideFlat, SideFlat, OrderHold, "No inventory, no trade"},
	{SideFlat, SideLong, OrderBuy, "Open long"},
	{SideFlat, SideShort, OrderSell, "Open short"},

	{SideLong, SideLong, OrderHold, "Hold long"},
	{SideLong, SideLong, OrderBuy, "Add to long"},
	{SideLong, SideLong, OrderSell, "Reduce long"},
	{SideLong, SideFlat, OrderSell, "Close long"},

	{SideShort, SideShort, OrderHold, "Hold short"},
	{SideShort, SideShort, OrderSell, "Add to short"},
	{SideShort, SideShort, OrderBuy, "Reduce short"},
	{SideShort, SideFlat, OrderBuy, "Cover short"},
}

// SideMachine tracks the position side across bars and rejects impossible changes.
type SideMachine struct {
	transitionCount map[Side]int
	currentSide     Side
	previousSide    Side
	flattenings     int
}

// NewSideMachine creates a machine starting flat.
func NewSideMachine() *SideMachine {
	return &SideMachine{
		currentSide:     SideFlat,
		previousSide:    SideFlat,
		transitionCount: make(map[Side]int),
	}
}

// GetCurrentSide returns the current side
func (sm *SideMachine) GetCurrentSide() Side {
	return sm.currentSide
}

// GetPreviousSide returns the side before the last change
func (sm *SideMachine) GetPreviousSide() Side {
	return sm.previousSide
}

// IsValidTransition checks whether order may move the machine to side to.
func (sm *SideMachine) IsValidTransition(to Side, order Order) error {
	for _, tr := range ValidSideTransitions {
		if tr.From == sm.currentSide && tr.To == to && tr.Order == order {
			return nil
		}
	}
	return fmt.Errorf("invalid side transition from %s to %s on %s", sm.currentSide, to, order)
}

// Transition applies the side implied by position after order was filled.
func (sm *SideMachine) Transition(position int, order Order) error {
	to := SideOf(position)
	if err := sm.IsValidTransition(to, order); err != nil {
		return err
	}
	if to == sm.currentSide {
		return nil
	}

	sm.previousSide = sm.currentSide
	sm.currentSide = to
	sm.transitionCount[to]++
	if to == SideFlat {
		sm.flattenings++
	}
	return nil
}

// GetTransitionCount returns how many times the machine has entered side.
func (sm *SideMachine) GetTransitionCount(side Side) int {
	return sm.transitionCount[side]
}

// Flattenings returns how many times inventory returned to zero.
func (sm *SideMachine) Flattenings() int {
	return sm.flattenings
}

// Reset returns the machine to its initial flat state.
func (sm *SideMachine) Reset() {
	sm.currentSide = SideFlat
	sm.previousSide = SideFlat
	sm.transitionCount = make(map[Side]int)
	sm.flattenings = 0
}

// Copy creates a deep copy of the SideMachine
func (sm *SideMachine) Copy() *SideMachine {
	if sm == nil {
		return nil
	}

	newSM := &SideMachine{
		currentSide:  sm.currentSide,
		previousSide: sm.previousSide,
		flattenings:  sm.flattenings,
	}
	newSM.transitionCount = make(map[Side]int, len(sm.transitionCount))
	for k, v := range sm.transitionCount {
		newSM.transitionCount[k] = v
	}
	return newSM
}
