package imagefocus

// Len reports how many keys are memoised.
func (f *Focuser) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memo)
}

// MaxEntries exposes the memo bound.
const MaxEntries = maxEntries
