package nav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logyard/queuedash/internal/nav"
)

func TestOpenPushBack(t *testing.T) {
	var s nav.Stack[string]
	s = s.Open("A", "a").Push("B", "b").Back()

	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, "A", top.Title)
	assert.Equal(t, "a", top.Content)
	assert.False(t, s.BackVisible())
	assert.True(t, s.IsOpen())
}

func TestBackPastBottomCloses(t *testing.T) {
	var s nav.Stack[string]
	s = s.Open("A", "a").Push("B", "b").Push("C", "c").Back().Back()
	assert.False(t, s.IsOpen())
	assert.Equal(t, 0, s.Depth())
}

func TestDepthNeverNegative(t *testing.T) {
	var s nav.Stack[int]
	for range 5 {
		s = s.Back()
		assert.Equal(t, 0, s.Depth())
	}
	s = s.Close().Close()
	assert.Equal(t, 0, s.Depth())
	_, ok := s.Top()
	assert.False(t, ok)
}

func TestOpenReplacesStack(t *testing.T) {
	var s nav.Stack[string]
	s = s.Open("A", "a").Push("B", "b").Push("C", "c").Open("D", "d")
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, []string{"D"}, s.Titles())
}

func TestBackKeepsCachedContent(t *testing.T) {
	var s nav.Stack[[]string]
	s = s.Open("queue execution", []string{"task 1", "task 2"}).Push("task 1", []string{"detail"})
	s = s.Back()
	top, _ := s.Top()
	assert.Equal(t, []string{"task 1", "task 2"}, top.Content)
}

func TestOperationsDoNotAliasPreviousState(t *testing.T) {
	var s nav.Stack[string]
	base := s.Open("A", "a").Push("B", "b")
	left := base.Back().Push("C", "c")
	right := base.Push("D", "d")

	assert.Equal(t, []string{"A", "B"}, base.Titles())
	assert.Equal(t, []string{"A", "C"}, left.Titles())
	assert.Equal(t, []string{"A", "B", "D"}, right.Titles())
}

func TestReplace(t *testing.T) {
	var s nav.Stack[string]
	s = s.Open("A", "loading")
	loaded := s.Replace("ready")

	top, _ := loaded.Top()
	assert.Equal(t, "ready", top.Content)
	top, _ = s.Top()
	assert.Equal(t, "loading", top.Content)
	assert.False(t, nav.Stack[string]{}.Replace("x").IsOpen())
}

func TestPushOnClosedOpens(t *testing.T) {
	var s nav.Stack[string]
	s = s.Push("A", "a")
	assert.True(t, s.IsOpen())
	assert.False(t, s.BackVisible())
}
