package history

import (
	"sync"
	"time"
)

const (
	// DefaultTransitionDuration is how long a season swap stays in flight.
	DefaultTransitionDuration = 300 * time.Millisecond
	// DefaultKickoffDelay is the delay before the incoming season starts moving.
	DefaultKickoffDelay = 10 * time.Millisecond
)

// State of the season pager.
type State int

const (
	Idle State = iota
	Transitioning
)

func (s State) String() string {
	if s == Transitioning {
		return "transitioning"
	}
	return "idle"
}

// Clock supplies time and fire-and-forget timers to the pager.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// Transition describes an in-flight swap between two adjacent seasons. It is
// a value: every phase change produces a new Transition.
type Transition struct {
	Direction Direction
	FromIndex int
	ToIndex   int
	Outgoing  MonthGroup
	Incoming  MonthGroup
	// Started is set once the kickoff delay has elapsed and the incoming
	// season should move towards its resting position.
	Started   bool
	StartedAt time.Time
	Duration  time.Duration
}

// Progress returns the elapsed fraction of the transition in [0, 1].
func (t Transition) Progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.StartedAt)) / float64(t.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Frame is what a renderer needs to draw the month selector at one instant.
// Seq increases with every published frame; renderers may drop frames whose
// Seq is lower than one they have already drawn.
type Frame struct {
	Seq          uint64
	State        State
	CurrentIndex int
	GroupCount   int
	Current      MonthGroup
	Selected     *Month
	Transition   *Transition
}

// CanPrevious reports whether a previous season exists.
func (f Frame) CanPrevious() bool { return f.GroupCount > 0 && f.CurrentIndex > 0 }

// CanNext reports whether a next season exists.
func (f Frame) CanNext() bool { return f.GroupCount > 0 && f.CurrentIndex < f.GroupCount-1 }

// PagerConfig holds pager configuration
type PagerConfig struct {
	Duration time.Duration
	Kickoff  time.Duration
	Clock    Clock
}

// DefaultPagerConfig returns the standard slide timings on the real clock.
func DefaultPagerConfig() PagerConfig {
	return PagerConfig{
		Duration: DefaultTransitionDuration,
		Kickoff:  DefaultKickoffDelay,
		Clock:    RealClock(),
	}
}

// Pager is the Idle/Transitioning state machine behind season navigation.
// At most one transition is in flight; navigation requests arriving while
// one is running are dropped.
type Pager struct {
	mu         sync.Mutex
	clock      Clock
	duration   time.Duration
	kickoff    time.Duration
	groups     []MonthGroup
	current    int
	selected   *Month
	state      State
	transition *Transition
	generation uint64
	seq        uint64
	onFrame    func(Frame)
}

// NewPager creates an empty pager in the Idle state.
func NewPager(cfg PagerConfig) *Pager {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultTransitionDuration
	}
	if cfg.Kickoff <= 0 || cfg.Kickoff >= cfg.Duration {
		cfg.Kickoff = min(DefaultKickoffDelay, cfg.Duration/2)
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	return &Pager{
		clock:    cfg.Clock,
		duration: cfg.Duration,
		kickoff:  cfg.Kickoff,
	}
}

// OnFrame registers the renderer callback. It is invoked without the pager
// lock held, so it may call back into the pager.
func (p *Pager) OnFrame(fn func(Frame)) {
	p.mu.Lock()
	p.onFrame = fn
	p.mu.Unlock()
}

// Reload replaces the seasons and resets navigation unconditionally. Any
// transition in flight is abandoned. current is clamped into range and
// selected is dropped unless some season contains it.
func (p *Pager) Reload(groups []MonthGroup, current int, selected *Month) {
	p.mu.Lock()
	p.generation++
	p.groups = groups
	p.state = Idle
	p.transition = nil
	p.current = 0
	if len(groups) > 0 {
		p.current = clampIndex(current, len(groups))
	}
	p.selected = nil
	if selected != nil {
		if _, ok := LocateGroupContaining(groups, *selected); ok {
			m := *selected
			p.selected = &m
		}
	}
	f, emit := p.frameLocked()
	p.mu.Unlock()
	emit(f)
}

// Navigate starts a transition towards the adjacent season. It returns false
// when the request is dropped: a transition is already running or the
// current season is at the boundary.
func (p *Pager) Navigate(direction Direction) bool {
	p.mu.Lock()
	if p.state == Transitioning || len(p.groups) == 0 {
		p.mu.Unlock()
		return false
	}
	to := Navigate(direction, p.current, len(p.groups))
	if to == p.current {
		p.mu.Unlock()
		return false
	}

	p.generation++
	gen := p.generation
	p.state = Transitioning
	p.transition = &Transition{
		Direction: direction,
		FromIndex: p.current,
		ToIndex:   to,
		Outgoing:  p.groups[p.current],
		Incoming:  p.groups[to],
		StartedAt: p.clock.Now(),
		Duration:  p.duration,
	}
	f, emit := p.frameLocked()
	p.mu.Unlock()

	p.clock.AfterFunc(p.kickoff, func() { p.kick(gen) })
	p.clock.AfterFunc(p.duration, func() { p.settle(gen) })
	emit(f)
	return true
}

// Select marks month as selected. Only months on the visible season can be
// picked, plus the incoming one while a transition runs.
func (p *Pager) Select(month Month) bool {
	p.mu.Lock()
	if !p.selectableLocked(month) {
		p.mu.Unlock()
		return false
	}
	p.selected = &month
	f, emit := p.frameLocked()
	p.mu.Unlock()
	emit(f)
	return true
}

func (p *Pager) selectableLocked(month Month) bool {
	if len(p.groups) == 0 {
		return false
	}
	if p.groups[p.current].Contains(month) {
		return true
	}
	return p.transition != nil && p.transition.Incoming.Contains(month)
}

// Frame returns the current frame without publishing it.
func (p *Pager) Frame() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buildFrameLocked()
}

// State returns the current state.
func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pager) kick(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.state != Transitioning || p.transition == nil {
		p.mu.Unlock()
		return
	}
	next := *p.transition
	next.Started = true
	p.transition = &next
	f, emit := p.frameLocked()
	p.mu.Unlock()
	emit(f)
}

func (p *Pager) settle(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.state != Transitioning || p.transition == nil {
		p.mu.Unlock()
		return
	}
	p.current = p.transition.ToIndex
	p.transition = nil
	p.state = Idle
	f, emit := p.frameLocked()
	p.mu.Unlock()
	emit(f)
}

// frameLocked builds the next published frame and returns the callback to
// deliver it once the lock is released.
func (p *Pager) frameLocked() (Frame, func(Frame)) {
	p.seq++
	f := p.buildFrameLocked()
	fn := p.onFrame
	return f, func(f Frame) {
		if fn != nil {
			fn(f)
		}
	}
}

func (p *Pager) buildFrameLocked() Frame {
	f := Frame{
		Seq:          p.seq,
		State:        p.state,
		CurrentIndex: p.current,
		GroupCount:   len(p.groups),
	}
	if len(p.groups) > 0 {
		f.Current = p.groups[p.current]
	}
	if p.selected != nil {
		m := *p.selected
		f.Selected = &m
	}
	if p.transition != nil {
		t := *p.transition
		f.Transition = &t
	}
	return f
}
