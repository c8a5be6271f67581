package derivation

import (
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
)

// lineIndex looks up upstream lines by line id, item id and normalised
// description. The first line wins when keys repeat.
type lineIndex[T any] struct {
	byLine map[id.ID]T
	byItem map[id.ID]T
	byDesc map[string]T
}

func newLineIndex[T any](lines []T, keys func(T) (lineID id.ID, itemID *id.ID, desc string)) *lineIndex[T] {
	x := &lineIndex[T]{
		byLine: make(map[id.ID]T, len(lines)),
		byItem: make(map[id.ID]T, len(lines)),
		byDesc: make(map[string]T, len(lines)),
	}
	for _, l := range lines {
		lineID, itemID, desc := keys(l)
		if _, ok := x.byLine[lineID]; !ok {
			x.byLine[lineID] = l
		}
		if itemID != nil {
			if _, ok := x.byItem[*itemID]; !ok {
				x.byItem[*itemID] = l
			}
		}
		if key := types.NormalizeText(desc); key != "" {
			if _, ok := x.byDesc[key]; !ok {
				x.byDesc[key] = l
			}
		}
	}
	return x
}

// match tries the line link, then the item id, then the description.
func (x *lineIndex[T]) match(lineID, itemID *id.ID, desc string) (T, bool) {
	if lineID != nil {
		if l, ok := x.byLine[*lineID]; ok {
			return l, true
		}
	}
	if itemID != nil {
		if l, ok := x.byItem[*itemID]; ok {
			return l, true
		}
	}
	if key := types.NormalizeText(desc); key != "" {
		if l, ok := x.byDesc[key]; ok {
			return l, true
		}
	}
	var zero T
	return zero, false
}

// firstPositive returns the first value greater than zero, or zero.
func firstPositive(values ...types.Money) types.Money {
	for _, v := range values {
		if v.IsPositive() {
			return v
		}
	}
	return types.Zero()
}

// firstID returns the first non-nil, non-zero id.
func firstID(ids ...*id.ID) *id.ID {
	for _, v := range ids {
		if v != nil && !id.IsNil(*v) {
			return v
		}
	}
	return nil
}
