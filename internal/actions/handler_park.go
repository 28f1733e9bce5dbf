package actions

import (
	"strings"
	"unicode/utf8"

	"github.com/pixil98/go-park/internal/park"
)

func setSpeed(w park.WorldState, t Type, p speedPayload) (park.WorldState, error) {
	if p.Speed < 0 || p.Speed > park.MaxSpeed {
		return w, invalidf(t, "speed must be between 0 and %d", park.MaxSpeed)
	}
	w.Speed = p.Speed
	return w, nil
}

func setFunding(w park.WorldState, t Type, p fundingPayload) (park.WorldState, error) {
	if !(p.Funding >= 0 && p.Funding <= 1) {
		return w, invalid(t, "funding must be between 0 and 1")
	}
	w.Funding = p.Funding
	return w, nil
}

func setEntryPrice(w park.WorldState, t Type, p pricePayload) (park.WorldState, error) {
	if !(p.Price >= 0 && p.Price <= MaxEntryPrice) {
		return w, invalidf(t, "entry price must be between 0 and %d", MaxEntryPrice)
	}
	w.EntryPrice = p.Price
	return w, nil
}

func renamePark(w park.WorldState, t Type, p renamePayload) (park.WorldState, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return w, invalid(t, "name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxParkNameLength {
		return w, invalidf(t, "name cannot be longer than %d characters", MaxParkNameLength)
	}
	w.Name = name
	return w, nil
}
