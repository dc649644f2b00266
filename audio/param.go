package audio

import "sort"

type eventKind int

const (
	eventSetValue eventKind = iota
	eventLinearRamp
)

type event struct {
	kind  eventKind
	frame int64
	value float64
}

// Param is an automatable value evaluated per frame on the device clock.
//
// Events are kept sorted by frame. A set event holds its value until the next
// event; a linear ramp interpolates from the previous event (or the default
// value at frame 0) up to its own frame.
//
// Param does no locking of its own. Mutate it only inside [Context.Update].
type Param struct {
	defaultValue float64
	events       []event
}

// NewParam creates a Param that evaluates to value until an event says otherwise.
func NewParam(value float64) *Param {
	return &Param{defaultValue: value}
}

// SetValueAtTime jumps to value at frame.
func (p *Param) SetValueAtTime(value float64, frame int64) {
	p.insert(event{kind: eventSetValue, frame: frame, value: value})
}

// LinearRampToValueAtTime ramps linearly from the preceding event so that the
// param reaches value exactly at frame.
func (p *Param) LinearRampToValueAtTime(value float64, frame int64) {
	p.insert(event{kind: eventLinearRamp, frame: frame, value: value})
}

// CancelScheduledValues drops every event at or after frame.
func (p *Param) CancelScheduledValues(frame int64) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].frame >= frame })
	p.events = p.events[:i]
}

// CancelAndHoldAtTime drops every event at or after frame and pins the param
// to the value it had at that frame, so a following ramp starts from where the
// output actually is instead of jumping.
func (p *Param) CancelAndHoldAtTime(frame int64) {
	held := p.ValueAt(frame)
	p.CancelScheduledValues(frame)
	p.SetValueAtTime(held, frame)
}

// ValueAt evaluates the automation timeline at frame.
func (p *Param) ValueAt(frame int64) float64 {
	prevFrame := int64(0)
	prevValue := p.defaultValue
	value := p.defaultValue
	for _, e := range p.events {
		if e.frame <= frame {
			value = e.value
			prevFrame, prevValue = e.frame, e.value
			continue
		}
		if e.kind == eventLinearRamp {
			span := float64(e.frame - prevFrame)
			if span <= 0 {
				return e.value
			}
			t := float64(frame-prevFrame) / span
			return prevValue + (e.value-prevValue)*t
		}
		return value
	}
	return value
}

// insert keeps events ordered by frame; events at the same frame keep their
// insertion order.
func (p *Param) insert(e event) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].frame > e.frame })
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}
