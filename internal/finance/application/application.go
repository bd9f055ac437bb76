package application

import (
	"time"
)

// Clock returns the current time. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// AlertTrigger queues a budget evaluation for an owner without blocking.
type AlertTrigger interface {
	Trigger(userID string)
}

type noopTrigger struct{}

func (noopTrigger) Trigger(string) {}

func triggerOrNoop(t AlertTrigger) AlertTrigger {
	if t == nil {
		return noopTrigger{}
	}
	return t
}
