package rules

import (
	"slices"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
)

// RequestKind names the decision a behavior asks a player for.
type RequestKind string

const (
	RequestChooseCard RequestKind = "chooseCard"
	RequestChooseLane RequestKind = "chooseLane"
	RequestConfirm    RequestKind = "confirm"
)

// Request is a decision offered to one side mid-resolution.
// Cards lists template ids to choose from; Lanes lists selectable lanes.
type Request struct {
	Kind   RequestKind `json:"kind"`
	Cards  []string    `json:"cards,omitempty"`
	Lanes  []int       `json:"lanes,omitempty"`
	Prompt string      `json:"prompt,omitempty"`
}

// Clone returns a deep copy.
func (r Request) Clone() Request {
	r.Cards = slices.Clone(r.Cards)
	r.Lanes = slices.Clone(r.Lanes)
	return r
}

// Response answers a Request. Type must match the request kind.
type Response struct {
	Type      RequestKind `json:"type"`
	Index     int         `json:"index,omitempty"`
	Lane      int         `json:"lane,omitempty"`
	Confirmed bool        `json:"confirmed,omitempty"`
}

// ValidateResponse checks a response against the request it answers.
func ValidateResponse(req Request, res Response) error {
	if res.Type != req.Kind {
		return apperrors.InvalidAction("response %q does not answer a %q request", res.Type, req.Kind)
	}
	switch req.Kind {
	case RequestChooseCard:
		if res.Index < 0 || res.Index >= len(req.Cards) {
			return apperrors.InvalidAction("card choice %d is not one of the %d offered", res.Index, len(req.Cards))
		}
	case RequestChooseLane:
		if !slices.Contains(req.Lanes, res.Lane) {
			return apperrors.InvalidAction("lane %d was not offered", res.Lane)
		}
	case RequestConfirm:
	default:
		return apperrors.InvalidAction("unknown request kind %q", req.Kind)
	}
	return nil
}
