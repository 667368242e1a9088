package terminal

// Navigator is a cursor over previously submitted command text, used for
// arrow-key recall. It operates on the plain text log, independent of the
// CommandRecord history. The zero value is ready to use.
type Navigator struct {
	entries []string // oldest first
	cursor  int      // index into entries; len(entries) means "no recall"
}

// Push appends a submitted command and resets the cursor to the draft
// position.
func (n *Navigator) Push(command string) {
	n.entries = append(n.entries, command)
	n.cursor = len(n.entries)
}

// Previous steps to the next older entry, clamped at the oldest. On an empty
// log it returns the empty draft.
func (n *Navigator) Previous() string {
	if len(n.entries) == 0 {
		return ""
	}
	if n.cursor > 0 {
		n.cursor--
	}
	return n.entries[n.cursor]
}

// Next steps toward newer entries. Stepping past the newest clears the cursor
// and returns the empty draft.
func (n *Navigator) Next() string {
	if n.cursor >= len(n.entries) {
		return ""
	}
	n.cursor++
	if n.cursor == len(n.entries) {
		return ""
	}
	return n.entries[n.cursor]
}

// Clear drops the log and resets the cursor.
func (n *Navigator) Clear() {
	n.entries = nil
	n.cursor = 0
}
