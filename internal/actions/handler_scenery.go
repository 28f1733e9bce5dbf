package actions

import "github.com/pixil98/go-park/internal/park"

func placeScenery(w park.WorldState, t Type, p sceneryPayload) (park.WorldState, error) {
	cost, ok := SceneryCost(p.Kind)
	if !ok {
		return w, invalidf(t, "unknown scenery %q", p.Kind)
	}
	if !w.Grid.Contains(p.X, p.Y) {
		return w, invalidf(t, "%d,%d is outside the park", p.X, p.Y)
	}
	if len(w.Grid.At(p.X, p.Y).Elements) >= MaxTileElements {
		return w, invalidf(t, "%d,%d is full", p.X, p.Y)
	}
	if w.Finances.Cash < cost {
		return w, invalidf(t, "%s costs %.0f", p.Kind, cost)
	}

	w.Finances.Spend(cost)
	w.Grid = w.Grid.WithElement(p.X, p.Y, park.Element{Kind: p.Kind})
	return w, nil
}

func removeScenery(w park.WorldState, t Type, p tilePayload) (park.WorldState, error) {
	if !w.Grid.Contains(p.X, p.Y) {
		return w, invalidf(t, "%d,%d is outside the park", p.X, p.Y)
	}
	if len(w.Grid.At(p.X, p.Y).Elements) == 0 {
		return w, invalidf(t, "nothing to clear at %d,%d", p.X, p.Y)
	}
	w.Grid = w.Grid.WithoutElements(p.X, p.Y)
	return w, nil
}
