package mqtt

import "log"

// backlog holds reading payloads while the broker is unreachable, oldest
// first. Once full it drops the oldest entry to make room, so a long
// outage keeps the most recent window of readings.
// Not safe for concurrent use; RealPublisher synchronizes around it.
type backlog struct {
	entries  [][]byte
	capacity int
	dropped  int
}

func newBacklog(capacity int) *backlog {
	return &backlog{capacity: capacity}
}

// push appends a payload, evicting the oldest entry when full.
func (b *backlog) push(payload []byte) {
	if b.capacity > 0 && len(b.entries) >= b.capacity {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d readings), dropping oldest", b.capacity)
		}
		b.dropped++
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = payload
		return
	}
	b.entries = append(b.entries, payload)
}

// drain returns the buffered payloads in arrival order and empties the
// backlog.
func (b *backlog) drain() [][]byte {
	if len(b.entries) == 0 {
		return nil
	}
	out := b.entries
	b.entries = nil
	b.dropped = 0
	return out
}

func (b *backlog) len() int {
	return len(b.entries)
}
