package settings

import (
	"math"
	"slices"
)

// EntryID keys an entry within its collection.
type EntryID int

// BaseID is the id given to the first entry of an empty collection.
const BaseID EntryID = 0

// MaxEntryID is the highest id a collection may hold. Decoding rejects larger
// keys and AddEntry refuses to go past it, so ids never wrap.
const MaxEntryID EntryID = math.MaxInt32

// Collection is an immutable map of entries iterated in ascending id order.
// With and Without return new collections; the receiver is never modified,
// so a value handed to the host stays stable after later edits.
type Collection struct {
	ids     []EntryID
	entries map[EntryID]Entry
}

// NewCollection builds a collection from a map. The map is copied.
func NewCollection(entries map[EntryID]Entry) Collection {
	c := Collection{
		ids:     make([]EntryID, 0, len(entries)),
		entries: make(map[EntryID]Entry, len(entries)),
	}
	for id, e := range entries {
		c.ids = append(c.ids, id)
		c.entries[id] = e
	}
	slices.Sort(c.ids)
	return c
}

func (c Collection) Len() int {
	return len(c.ids)
}

// IDs returns the ids in ascending order. The slice is a copy.
func (c Collection) IDs() []EntryID {
	return slices.Clone(c.ids)
}

func (c Collection) Get(id EntryID) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

func (c Collection) Has(id EntryID) bool {
	_, ok := c.entries[id]
	return ok
}

// MaxID returns the highest id in use; ok is false for an empty collection.
func (c Collection) MaxID() (id EntryID, ok bool) {
	if len(c.ids) == 0 {
		return 0, false
	}
	return c.ids[len(c.ids)-1], true
}

// NextID is one past the highest id in use, or BaseID when empty. ok is
// false once the highest id is MaxEntryID.
func (c Collection) NextID() (id EntryID, ok bool) {
	last, ok := c.MaxID()
	if !ok {
		return BaseID, true
	}
	if last >= MaxEntryID {
		return 0, false
	}
	return last + 1, true
}

// With returns a collection where id maps to e, inserting or replacing.
func (c Collection) With(id EntryID, e Entry) Collection {
	next := Collection{
		entries: make(map[EntryID]Entry, len(c.entries)+1),
	}
	for k, v := range c.entries {
		next.entries[k] = v
	}
	next.entries[id] = e

	if _, exists := c.entries[id]; exists {
		next.ids = slices.Clone(c.ids)
		return next
	}

	pos, _ := slices.BinarySearch(c.ids, id)
	next.ids = slices.Insert(slices.Clone(c.ids), pos, id)
	return next
}

// Without returns a collection lacking id. Removing a missing id returns
// an equal collection.
func (c Collection) Without(id EntryID) Collection {
	if !c.Has(id) {
		return c
	}

	next := Collection{
		ids:     make([]EntryID, 0, len(c.ids)-1),
		entries: make(map[EntryID]Entry, len(c.entries)-1),
	}
	for _, k := range c.ids {
		if k == id {
			continue
		}
		next.ids = append(next.ids, k)
		next.entries[k] = c.entries[k]
	}
	return next
}

// Item pairs an entry with its id.
type Item struct {
	ID    EntryID
	Entry Entry
}

// Items returns the entries in id order.
func (c Collection) Items() []Item {
	items := make([]Item, len(c.ids))
	for i, id := range c.ids {
		items[i] = Item{ID: id, Entry: c.entries[id]}
	}
	return items
}

func (c Collection) Equal(other Collection) bool {
	if !slices.Equal(c.ids, other.ids) {
		return false
	}
	for _, id := range c.ids {
		if c.entries[id] != other.entries[id] {
			return false
		}
	}
	return true
}

// Invalid returns the ids of entries that fail Entry.Validate.
func (c Collection) Invalid() []EntryID {
	var ids []EntryID
	for _, id := range c.ids {
		if !c.entries[id].IsValid() {
			ids = append(ids, id)
		}
	}
	return ids
}
