package connection

import "time"

const (
	// RecentTerminalTTL is how long a finished attempt stays queryable after
	// leaving active tracking. Long enough for a UI poll or an OAuth popup's
	// duplicate confirmation, short enough not to accumulate.
	RecentTerminalTTL = 10 * time.Minute

	// RecentTerminalSize bounds the terminal-attempt cache.
	RecentTerminalSize = 64
)
