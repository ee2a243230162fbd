package authentication

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// UsernameFilter is a probabilistic set of registered usernames. A negative
// answer is definite only for users known when it was filled, a positive one
// still needs a database lookup.
type UsernameFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewUsernameFilter(expectedItems uint, falsePositiveRate float64) *UsernameFilter {
	if expectedItems == 0 {
		expectedItems = 1
	}

	return &UsernameFilter{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func (f *UsernameFilter) Add(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filter.AddString(username)
}

func (f *UsernameFilter) MightContain(username string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.filter.TestString(username)
}
