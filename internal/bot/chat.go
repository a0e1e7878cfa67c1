package bot

import (
	"slices"
	"strings"
	"sync"
)

// NewsDelimiter opens and closes the server broadcast blocks.
const NewsDelimiter = "------------ [ News ] ------------"

// ChatFilter drops chat lines that are noise for the operator. It keeps
// state across lines to hide whole news blocks.
type ChatFilter struct {
	mu          sync.Mutex
	ignore      []string
	inBroadcast bool
}

func (f *ChatFilter) SetIgnore(prefixes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignore = slices.DeleteFunc(slices.Clone(prefixes), func(p string) bool { return p == "" })
}

// Allow reports whether line should be relayed.
func (f *ChatFilter) Allow(line string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.ignore {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	if strings.TrimSpace(line) == "" {
		return false
	}
	if line == NewsDelimiter {
		f.inBroadcast = !f.inBroadcast
		return false
	}
	return !f.inBroadcast
}
