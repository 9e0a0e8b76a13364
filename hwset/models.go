// Package hwset defines the hardware set entity: a named pool of fungible,
// individually uncounted units with a fixed capacity.
package hwset

// Set is a catalog entry for a shared hardware pool.
//
// Name is the unique identifier and is immutable after creation, as is
// Capacity. Availability is the only mutable field and is changed solely by
// checkout and check-in operations through the store; it always satisfies
// 0 <= Availability <= Capacity.
type Set struct {
	Name         string `json:"hwSetName" bson:"hwSetName"`
	Capacity     int    `json:"capacity" bson:"capacity"`
	Availability int    `json:"availability" bson:"availability"`
}

// New returns a Set with availability equal to its full capacity, which is
// how every set begins life.
func New(name string, capacity int) *Set {
	return &Set{Name: name, Capacity: capacity, Availability: capacity}
}

// Valid reports whether the set satisfies its structural invariants.
func (s *Set) Valid() bool {
	return s.Name != "" && s.Capacity > 0 &&
		s.Availability >= 0 && s.Availability <= s.Capacity
}

// InUse returns the number of units currently checked out across all
// projects, by construction equal to the sum of holding quantities
// referencing this set.
func (s *Set) InUse() int {
	return s.Capacity - s.Availability
}
