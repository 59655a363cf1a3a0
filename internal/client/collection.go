package client

import "slices"

// Collection is an ordered keyed list. Order changes only through Prepend
// and MoveToFront; patches keep an item where it is. It is not safe for
// concurrent use.
type Collection[K comparable, V any] struct {
	keys  []K
	items map[K]V
}

// NewCollection returns an empty Collection.
func NewCollection[K comparable, V any]() *Collection[K, V] {
	return &Collection[K, V]{items: make(map[K]V)}
}

func (c *Collection[K, V]) Len() int { return len(c.keys) }

func (c *Collection[K, V]) Get(k K) (V, bool) {
	v, ok := c.items[k]
	return v, ok
}

// Append adds v at the end. It returns false and changes nothing when k exists.
func (c *Collection[K, V]) Append(k K, v V) bool {
	if _, ok := c.items[k]; ok {
		return false
	}
	c.keys = append(c.keys, k)
	c.items[k] = v
	return true
}

// Prepend adds v at the front. It returns false and changes nothing when k exists.
func (c *Collection[K, V]) Prepend(k K, v V) bool {
	if _, ok := c.items[k]; ok {
		return false
	}
	c.keys = slices.Insert(c.keys, 0, k)
	c.items[k] = v
	return true
}

// Patch applies fn to the item in place.
func (c *Collection[K, V]) Patch(k K, fn func(v *V)) bool {
	v, ok := c.items[k]
	if !ok {
		return false
	}
	fn(&v)
	c.items[k] = v
	return true
}

func (c *Collection[K, V]) Remove(k K) bool {
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	if i := slices.Index(c.keys, k); i >= 0 {
		c.keys = slices.Delete(c.keys, i, i+1)
	}
	return true
}

func (c *Collection[K, V]) MoveToFront(k K) bool {
	i := slices.Index(c.keys, k)
	if i < 0 {
		return false
	}
	if i > 0 {
		copy(c.keys[1:i+1], c.keys[:i])
		c.keys[0] = k
	}
	return true
}

func (c *Collection[K, V]) Keys() []K {
	return slices.Clone(c.keys)
}

// Values returns the items in order.
func (c *Collection[K, V]) Values() []V {
	out := make([]V, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}
