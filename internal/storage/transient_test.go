package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransient(t *testing.T) {
	s := NewTransient()

	_, ok := s.Get("access_token")
	assert.False(t, ok)

	s.Set("access_token", "abc")
	s.Set("user", `{"id":1}`)
	v, ok := s.Get("access_token")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.Equal(t, []string{"access_token", "user"}, s.Keys())

	s.Delete("access_token")
	s.Delete("missing")
	_, ok = s.Get("access_token")
	assert.False(t, ok)

	s.Clear()
	assert.Empty(t, s.Keys())
}

func TestTransient_ConcurrentAccess(t *testing.T) {
	s := NewTransient()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set("k", "v")
			s.Get("k")
			s.Keys()
		}()
	}
	wg.Wait()
	v, _ := s.Get("k")
	assert.Equal(t, "v", v)
}
