package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// Checksum is a digest of a fight's deterministic representation. Two fights
// with equal checksums hold the same board, hands, decks and counters.
type Checksum struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// ComputeChecksum hashes f.
func ComputeChecksum(f *fight.Fight) Checksum {
	sum := sha256.Sum256([]byte(canonical(f)))
	return Checksum{Hash: hex.EncodeToString(sum[:]), Version: 1}
}

// canonical renders f line by line in a fixed order.
func canonical(f *fight.Fight) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "TURN:%s|%s\n", f.Turn.Side, f.Turn.Phase)
	fmt.Fprintf(&buf, "POINTS:%d|%d\n", f.Points[0], f.Points[1])
	for _, side := range fight.Sides {
		p := f.Players[side]
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d/%d|%d|%d\n",
			side, p.Bones, p.Energy.Current, p.Energy.Capacity, p.Deaths, p.HammersUsed)
		if must := f.MustPlay[side]; must != nil {
			fmt.Fprintf(&buf, "  MUSTPLAY:%d\n", *must)
		}
		for lane, c := range f.Field[side] {
			if c != nil {
				fmt.Fprintf(&buf, "  FIELD:%d:%s\n", lane, cardLine(c))
			}
		}
		for i, c := range f.Hands[side] {
			fmt.Fprintf(&buf, "  HAND:%d:%s\n", i, cardLine(c))
		}
		for _, kind := range []fight.DeckKind{fight.DeckMain, fight.DeckSide} {
			deck := f.Decks[side].Get(kind)
			ids := make([]string, 0, deck.Len())
			for i := range deck.Len() {
				id, _ := deck.Peek(i)
				ids = append(ids, id)
			}
			fmt.Fprintf(&buf, "  DECK:%s:%s\n", kind, strings.Join(ids, ","))
		}
	}
	return buf.String()
}

func cardLine(c *fight.Card) string {
	s := c.State
	return fmt.Sprintf("%s|%d|%s|%d/%d|%s|%t|%t|%t",
		c.TemplateID, s.Power, s.Stat, s.Health, s.MaxHealth,
		strings.Join(s.Sigils, ","), s.Flipped, s.Backward, s.Evolved)
}

// EncodeHost serializes a host record for storage backends.
func EncodeHost(h *Host) ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode host %s: %w", h.ID, err)
	}
	return data, nil
}

// DecodeHost parses a host record written by EncodeHost.
func DecodeHost(data []byte) (*Host, error) {
	var h Host
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to decode host: %w", err)
	}
	if h.Fight == nil || h.Initial == nil {
		return nil, fmt.Errorf("host %s is missing its fight state", h.ID)
	}
	return &h, nil
}

// ValidateRoundtrip checks that h survives encoding with its fight intact.
func ValidateRoundtrip(h *Host) error {
	data, err := EncodeHost(h)
	if err != nil {
		return err
	}
	back, err := DecodeHost(data)
	if err != nil {
		return err
	}
	before, after := ComputeChecksum(h.Fight), ComputeChecksum(back.Fight)
	if before != after {
		return fmt.Errorf("checksum mismatch: original=%s, decoded=%s", before.Hash, after.Hash)
	}
	if len(back.Log) != len(h.Log) || len(back.Backlog) != len(h.Backlog) {
		return fmt.Errorf("event counts changed in roundtrip")
	}
	return nil
}
