package engine

import "time"

// DefaultClockBuffer suppresses micro-skew flapping while preserving
// user-intentional forward-dating, which is typically minutes or more.
const DefaultClockBuffer = 10 * time.Second

// Clock compares local and remote timestamps under a fixed offset sampled
// at session start. Offset is server_now - local_now.
type Clock struct {
	offset time.Duration
	buffer time.Duration
	now    func() time.Time
}

// NewClock creates a Clock with the given offset and skew buffer.
func NewClock(offset, buffer time.Duration) *Clock {
	if buffer <= 0 {
		buffer = DefaultClockBuffer
	}
	return &Clock{
		offset: offset,
		buffer: buffer,
		now:    time.Now,
	}
}

// Offset returns the sampled server-local offset.
func (c *Clock) Offset() time.Duration {
	return c.offset
}

// Normalize maps a local timestamp onto the server's clock.
func (c *Clock) Normalize(local time.Time) time.Time {
	return local.Add(c.offset)
}

// ServerNow is the current instant on the server's clock.
func (c *Clock) ServerNow() time.Time {
	return c.now().Add(c.offset)
}

// IsFuture reports whether a local mtime lies ahead of the server clock by
// more than the buffer. Users pin a local version by stamping its mtime
// forward.
func (c *Clock) IsFuture(local time.Time) bool {
	return c.Normalize(local).After(c.ServerNow().Add(c.buffer))
}

// IsLocalNewer reports whether a local mtime is strictly newer than a
// server timestamp, beyond the skew buffer.
func (c *Clock) IsLocalNewer(local, server time.Time) bool {
	return c.Normalize(local).After(server.Add(c.buffer))
}
