package trigger

// Cache holds the trigger objects of one event, per species and filter slot.
// It is not safe for concurrent mutation; hosts processing events in
// parallel give each worker its own Cache.
type Cache struct {
	objects [numSpecies][MaxFilters][]Kinematics
}

func NewCache() *Cache {
	return &Cache{}
}

// Reset empties every slot of every species, registered or not.
func (c *Cache) Reset() {
	for s := range c.objects {
		for f := range c.objects[s] {
			c.objects[s][f] = c.objects[s][f][:0]
		}
	}
}

// Add appends a trigger object to a slot. Out-of-range arguments are ignored;
// the registry never hands them out.
func (c *Cache) Add(s Species, slot int, k Kinematics) {
	if !s.valid() || slot < 0 || slot >= MaxFilters {
		return
	}
	c.objects[s][slot] = append(c.objects[s][slot], k)
}

// Objects returns the cached objects of a slot. The slice is owned by the
// cache and is only valid until the next Reset.
func (c *Cache) Objects(s Species, slot int) []Kinematics {
	if !s.valid() || slot < 0 || slot >= MaxFilters {
		return nil
	}
	return c.objects[s][slot]
}

// Len counts the cached objects of a species over all slots.
func (c *Cache) Len(s Species) int {
	if !s.valid() {
		return 0
	}
	n := 0
	for _, objs := range c.objects[s] {
		n += len(objs)
	}
	return n
}
