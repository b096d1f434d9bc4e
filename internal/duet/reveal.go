package duet

// CellReveal is one cell's reveal state, tracked separately per guessing
// perspective. A nil side means that participant has not had the cell
// resolved yet; the same cell can be revealed for A while hidden for B.
type CellReveal struct {
	ForA *Category `json:"revealedForA"`
	ForB *Category `json:"revealedForB"`
}

func (c CellReveal) Get(seat Seat) *Category {
	if seat == SeatA {
		return c.ForA
	}
	return c.ForB
}

func (c CellReveal) eitherIs(category Category) bool {
	if c.ForA != nil && *c.ForA == category {
		return true
	}
	return c.ForB != nil && *c.ForB == category
}

type RevealBoard []CellReveal

func NewRevealBoard(size int) RevealBoard {
	return make(RevealBoard, size)
}

// RevealFor records a category for one perspective. Already-revealed cells
// are left untouched and reported as false, so re-delivered guess commands
// cannot double-count.
func (rb RevealBoard) RevealFor(seat Seat, index int, category Category) bool {
	if index < 0 || index >= len(rb) {
		return false
	}
	if rb[index].Get(seat) != nil {
		return false
	}
	if seat == SeatA {
		rb[index].ForA = &category
	} else {
		rb[index].ForB = &category
	}
	return true
}

// IsCellClickable reports whether the given perspective may still guess this
// cell: no side has revealed it as assassin and this side has not revealed
// it at all.
func (rb RevealBoard) IsCellClickable(seat Seat, index int) bool {
	if index < 0 || index >= len(rb) {
		return false
	}
	if rb[index].eitherIs(CategoryAssassin) {
		return false
	}
	return rb[index].Get(seat) == nil
}

// EffectiveDisplayCategory resolves what a viewer should see for a cell:
// assassin from either perspective wins, then team green from either
// perspective, then the viewer's own revealed value. Nil means nothing is
// revealed to this viewer and the caller falls back to its own key card.
func (rb RevealBoard) EffectiveDisplayCategory(viewer Seat, index int) *Category {
	if index < 0 || index >= len(rb) {
		return nil
	}
	cell := rb[index]
	if cell.eitherIs(CategoryAssassin) {
		return categoryPtr(CategoryAssassin)
	}
	if cell.eitherIs(CategoryGreen) {
		return categoryPtr(CategoryGreen)
	}
	return cell.Get(viewer)
}

// TeamGreenCount counts cells revealed green from at least one perspective.
// The game is won when it reaches WinThreshold.
func (rb RevealBoard) TeamGreenCount() (count int) {
	for _, cell := range rb {
		if cell.eitherIs(CategoryGreen) {
			count++
		}
	}
	return
}

func categoryPtr(c Category) *Category {
	return &c
}
