// Package dogs holds the dog list core: the Collection view over the
// persistence provider, the pure query functions that derive the visible
// list, the Service that applies mutations while keeping names unique, and
// the photo flow state machine used when adding a dog.
package dogs
