package history

// Unset is the cursor value meaning "nothing selected, use the newest".
const Unset = -1

// Cursor is the index of the entry currently selected while browsing.
// Wrap-around is the caller's business; Set only validates.
type Cursor struct {
	index int
}

// NewCursor returns a cursor with nothing selected.
func NewCursor() *Cursor {
	return &Cursor{index: Unset}
}

// Index returns the selected index or Unset.
func (c *Cursor) Index() int {
	return c.index
}

// Set selects index, which must be Unset or within [0, count).
func (c *Cursor) Set(index, count int) bool {
	if index != Unset && (index < 0 || index >= count) {
		return false
	}
	c.index = index
	return true
}

// Reset clears the selection.
func (c *Cursor) Reset() {
	c.index = Unset
}

// Resolve returns the selected index with Unset mapped to the newest entry.
func (c *Cursor) Resolve() int {
	if c.index == Unset {
		return 0
	}
	return c.index
}

// Next returns the index reached by a navigate-next step from index. It
// counts down and wraps from 0 (or Unset) to count-1.
func Next(index, count int) int {
	if count <= 0 {
		return Unset
	}
	if index <= 0 {
		return count - 1
	}
	return index - 1
}

// Prev returns the index reached by a navigate-prev step from index. It
// counts up and wraps from count-1 to 0.
func Prev(index, count int) int {
	if count <= 0 {
		return Unset
	}
	if index >= count-1 {
		return 0
	}
	return index + 1
}

// AfterDelete returns the index to select once the entry at deleted has been
// removed from a history now holding count entries. It continues in the
// direction of the last step: after a Next step the entry before the gap,
// after a Prev step the entry that slid into it. Unset means nothing is left.
func AfterDelete(deleted, count int, lastWasNext bool) int {
	if count <= 0 {
		return Unset
	}
	if lastWasNext {
		if deleted-1 < 0 {
			return count - 1
		}
		return deleted - 1
	}
	if deleted >= count {
		return 0
	}
	return deleted
}
