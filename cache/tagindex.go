package cache

import "sync"

// tagIndex maps tags to the keys currently carrying them, for the local
// tiers. Keys that expire underneath the index are pruned lazily: removing
// an already-absent key from the store is a no-op.
type tagIndex struct {
	mu      sync.Mutex
	byTag   map[string]map[string]struct{}
	keyTags map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag:   make(map[string]map[string]struct{}),
		keyTags: make(map[string]map[string]struct{}),
	}
}

// add records key under each tag, replacing the key's previous tag set.
func (ti *tagIndex) add(key string, tags []string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.dropLocked(key)
	if len(tags) == 0 {
		return
	}

	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
		keys, ok := ti.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			ti.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	ti.keyTags[key] = set
}

// drop removes key from every tag it carries.
func (ti *tagIndex) drop(key string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.dropLocked(key)
}

func (ti *tagIndex) dropLocked(key string) {
	for tag := range ti.keyTags[key] {
		delete(ti.byTag[tag], key)
		if len(ti.byTag[tag]) == 0 {
			delete(ti.byTag, tag)
		}
	}
	delete(ti.keyTags, key)
}

// take returns the keys carrying tag and removes the tag's index entry.
func (ti *tagIndex) take(tag string) []string {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	keys := make([]string, 0, len(ti.byTag[tag]))
	for key := range ti.byTag[tag] {
		keys = append(keys, key)
		delete(ti.keyTags[key], tag)
		if len(ti.keyTags[key]) == 0 {
			delete(ti.keyTags, key)
		}
	}
	delete(ti.byTag, tag)
	return keys
}

// reset drops the whole index.
func (ti *tagIndex) reset() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.byTag = make(map[string]map[string]struct{})
	ti.keyTags = make(map[string]map[string]struct{})
}
