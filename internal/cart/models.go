package cart

import (
	"slices"

	"storefront/internal/backend"
	id "storefront/pkg/domain"
)

// Quantity bounds for a single line.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Line is one product in the cart.
type Line struct {
	CartItemID  id.CartItemID
	ProductID   id.ProductID
	UnitPrice   int64
	Quantity    int
	ProductName string
	ImageURL    string
	Slug        string
}

// Snapshot is an immutable view of the signed-in user's cart.
type Snapshot struct {
	UserID        id.UserID
	Lines         []Line
	TotalQuantity int
	TotalPrice    int64
}

// Empty reports whether the cart has no lines.
func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

// Line returns the line with itemID.
func (s Snapshot) Line(itemID id.CartItemID) (Line, bool) {
	for _, l := range s.Lines {
		if l.CartItemID == itemID {
			return l, true
		}
	}
	return Line{}, false
}

func newSnapshot(userID id.UserID, lines []Line) Snapshot {
	s := Snapshot{UserID: userID, Lines: lines}
	s.recompute()
	return s
}

// recompute derives the totals from the lines.
func (s *Snapshot) recompute() {
	s.TotalQuantity, s.TotalPrice = 0, 0
	for _, l := range s.Lines {
		s.TotalQuantity += l.Quantity
		s.TotalPrice += l.UnitPrice * int64(l.Quantity)
	}
}

func (s Snapshot) clone() Snapshot {
	s.Lines = slices.Clone(s.Lines)
	return s
}

func (s Snapshot) indexOf(itemID id.CartItemID) int {
	return slices.IndexFunc(s.Lines, func(l Line) bool { return l.CartItemID == itemID })
}

func linesFromBackend(items []backend.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		l := Line{
			CartItemID: it.ID,
			ProductID:  it.ProductID,
			UnitPrice:  int64(it.Price),
			Quantity:   it.Quantity,
		}
		if it.Product != nil {
			l.ProductName = it.Product.Name
			l.ImageURL = it.Product.Image
			l.Slug = it.Product.Slug
		}
		lines = append(lines, l)
	}
	return lines
}

// ValidQuantity reports whether q is within [MinQuantity, MaxQuantity].
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}
