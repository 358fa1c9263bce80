// Package nav is the drill-down navigation state shared by the dashboard
// clients: a stack of detail frames shown in a modal, where each frame
// caches its rendered content so going back never refetches.
//
// Stack is a value. Every operation returns the next state and leaves the
// receiver untouched, so a client can keep the previous state around.
package nav

// Kinds of drill-down targets.
const (
	KindQueue        = "queue"
	KindTask         = "task"
	KindRootWorkItem = "root-work-item"
	KindAgent        = "agent"
	KindAnnouncement = "announcement"
	KindFile         = "file"
	KindURL          = "url"
)

// Target names something a frame lets the user drill into.
type Target struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

// Frame is one level of the stack.
type Frame[C any] struct {
	Title   string
	Content C
}

// Stack is the navigation state. The zero value is closed.
type Stack[C any] struct {
	frames []Frame[C]
}

// Open replaces the whole stack with a single frame.
func (s Stack[C]) Open(title string, content C) Stack[C] {
	return Stack[C]{frames: []Frame[C]{{Title: title, Content: content}}}
}

// Push adds a frame on top. Pushing onto a closed stack opens it.
func (s Stack[C]) Push(title string, content C) Stack[C] {
	frames := make([]Frame[C], len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)
	return Stack[C]{frames: append(frames, Frame[C]{Title: title, Content: content})}
}

// Back pops the top frame. At depth one or less it closes the stack.
func (s Stack[C]) Back() Stack[C] {
	if len(s.frames) <= 1 {
		return Stack[C]{}
	}
	return Stack[C]{frames: s.frames[:len(s.frames)-1 : len(s.frames)-1]}
}

// Close discards every frame.
func (s Stack[C]) Close() Stack[C] {
	return Stack[C]{}
}

// Top returns the visible frame.
func (s Stack[C]) Top() (Frame[C], bool) {
	if len(s.frames) == 0 {
		return Frame[C]{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Replace swaps the content of the visible frame, keeping its title. It is
// how a client fills a frame opened with placeholder content once the fetch
// for it completes.
func (s Stack[C]) Replace(content C) Stack[C] {
	if len(s.frames) == 0 {
		return s
	}
	frames := make([]Frame[C], len(s.frames))
	copy(frames, s.frames)
	frames[len(frames)-1].Content = content
	return Stack[C]{frames: frames}
}

// Depth is the number of frames.
func (s Stack[C]) Depth() int { return len(s.frames) }

// IsOpen reports whether the modal is showing.
func (s Stack[C]) IsOpen() bool { return len(s.frames) > 0 }

// BackVisible reports whether the back control should be shown.
func (s Stack[C]) BackVisible() bool { return len(s.frames) > 1 }

// Titles returns the frame titles bottom to top, for a breadcrumb.
func (s Stack[C]) Titles() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Title
	}
	return out
}
