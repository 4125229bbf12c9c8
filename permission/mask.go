package permission

// Mask64 is a 64-bit capability bitmask. Bit positions are assigned by the
// [Table] at construction time and are stable for the lifetime of the process.
type Mask64 uint64

// Has reports whether bit is set.
func (m *Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	return (*m & (1 << bit)) != 0
}

// Set sets bit. Out-of-range bits are ignored.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= (1 << bit)
}

// Clear unsets bit. Out-of-range bits are ignored.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= (1 << bit)
}

// Intersects reports whether m and other share at least one set bit.
func (m *Mask64) Intersects(other Mask64) bool {
	return (*m & other) != 0
}

// Raw returns the underlying bits.
func (m *Mask64) Raw() uint64 {
	return uint64(*m)
}
