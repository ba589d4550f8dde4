package scope

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_IncludeMutations(t *testing.T) {
	r := NewResolver(nil, nil)

	assert.True(t, r.AddInclude("notes"))
	assert.False(t, r.AddInclude("notes"), "re-adding is a no-op")
	assert.True(t, r.HasInclude("notes"))

	// The vault root is a valid include entry.
	assert.True(t, r.AddInclude(""))
	assert.True(t, r.HasInclude(""))

	assert.True(t, r.RemoveInclude("notes"))
	assert.False(t, r.RemoveInclude("notes"), "removing an absent entry is a no-op")
	assert.Equal(t, []string{""}, r.Includes())
}

func TestResolver_ExcludeMutations(t *testing.T) {
	r := NewResolver(nil, nil)

	changed, err := r.AddExclude("archive")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.AddExclude("archive")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.True(t, r.RemoveExclude("archive"))
	assert.False(t, r.RemoveExclude("archive"))
}

func TestResolver_RootExclusionRejected(t *testing.T) {
	r := NewResolver(nil, nil)

	changed, err := r.AddExclude("")
	assert.False(t, changed)

	var rootErr *RootExclusionError
	require.ErrorAs(t, err, &rootErr)
	assert.Empty(t, r.Excludes(), "rejected mutation must not change the set")

	// The set stays untouched regardless of how often it is attempted.
	_, _ = r.AddExclude("")
	assert.Empty(t, r.Excludes())
}

func TestNewResolver_DropsPersistedRootExclude(t *testing.T) {
	r := NewResolver([]string{"", "notes"}, []string{"", "archive"})

	assert.Equal(t, []string{"", "notes"}, r.Includes())
	assert.Equal(t, []string{"archive"}, r.Excludes())
}

func TestResolver_SortedSnapshots(t *testing.T) {
	r := NewResolver([]string{"b", "a", "c"}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, r.Includes())
}

func TestResolver_ConcurrentReadersAndWriters(t *testing.T) {
	r := NewResolver([]string{"notes"}, []string{"archive"})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			folder := "drafts/" + strconv.Itoa(i%8)
			if i%2 == 0 {
				_, _ = r.AddExclude(folder)
				r.AddInclude(folder)
			} else {
				r.RemoveExclude(folder)
				r.RemoveInclude(folder)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = r.HasExclude("archive")
			_ = r.HasInclude("notes")
			_ = r.Excludes()
			_ = r.Includes()
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.True(t, r.HasInclude("notes"))
	assert.True(t, r.HasExclude("archive"))
}
