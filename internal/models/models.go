// Package models holds the records shared by the store and web layers.
package models

// DefaultListTitle is the title of the default list. Items added to it are
// stored standalone rather than embedded in a List.
const DefaultListTitle = "Today"

// Item is a single to-do entry. The same record is used for standalone items
// and for items embedded in a List.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is a named, ordered collection of items. Name is the list's identity.
type List struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// DefaultItems returns a fresh copy of the seed entries shown on first use of
// any list. IDs are left empty; stores assign them on insert.
func DefaultItems() []Item {
	return []Item{
		{Name: "Welcome to your note taking app!"},
		{Name: "Hit the + button to add a new item"},
		{Name: "<-- Hit this to delete an item"},
	}
}

// IsDefaultList reports whether name addresses the standalone item collection.
func IsDefaultList(name string) bool {
	return name == DefaultListTitle
}
