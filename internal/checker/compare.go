package checker

// statusKey is the value two results are compared by. Failed checks share a
// single key regardless of their message, so an error that persists across
// runs is not a change, while error to status code (or back) is.
func statusKey(r Result) int {
	if r.Failed() {
		return -1
	}
	return r.StatusCode
}

// Compare returns an entry for every current result whose URL also appears in
// previous with a different status. URLs missing from previous are skipped;
// when previous holds a URL more than once, its first occurrence is used.
// Entries follow the order of current. The result is never nil.
func Compare(current, previous Set) []CompareEntry {
	byURL := make(map[string]Result, len(previous))
	for _, p := range previous {
		if _, ok := byURL[p.URL]; !ok {
			byURL[p.URL] = p
		}
	}

	changes := []CompareEntry{}
	for _, c := range current {
		p, ok := byURL[c.URL]
		if !ok {
			continue
		}
		if statusKey(c) != statusKey(p) {
			changes = append(changes, CompareEntry{Previous: p, Current: c})
		}
	}
	return changes
}
