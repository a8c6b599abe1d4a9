package modeling

import (
	"sort"
	"sync"
)

// An Inbox holds the messages delivered to a model during one cycle, grouped
// by input port. Each port keeps a set of messages keyed by message ID, so a
// message that reaches the same port along several coupling paths is stored
// once.
type Inbox struct {
	lock sync.Mutex
	bags map[string]*bag
	size int
}

type bag struct {
	msgs []Msg
	ids  map[string]struct{}
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{bags: make(map[string]*bag)}
}

// Add delivers a message to a port. It returns false if the message was
// already delivered to the port.
func (b *Inbox) Add(port string, msg Msg) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	pb, found := b.bags[port]
	if !found {
		pb = &bag{ids: make(map[string]struct{})}
		b.bags[port] = pb
	}

	if _, dup := pb.ids[msg.ID]; dup {
		return false
	}

	pb.ids[msg.ID] = struct{}{}
	pb.msgs = append(pb.msgs, msg)
	b.size++

	return true
}

// Empty tells if no message has been delivered.
func (b *Inbox) Empty() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.size == 0
}

// Len returns the number of messages over all the ports.
func (b *Inbox) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.size
}

// Ports returns the names of the ports that received messages, sorted.
func (b *Inbox) Ports() []string {
	b.lock.Lock()
	defer b.lock.Unlock()

	ports := make([]string, 0, len(b.bags))
	for p := range b.bags {
		ports = append(ports, p)
	}

	sort.Strings(ports)

	return ports
}

// Messages returns the messages delivered to a port, in delivery order.
func (b *Inbox) Messages(port string) []Msg {
	b.lock.Lock()
	defer b.lock.Unlock()

	pb, found := b.bags[port]
	if !found {
		return nil
	}

	msgs := make([]Msg, len(pb.msgs))
	copy(msgs, pb.msgs)

	return msgs
}

// Values returns the values delivered to a port, in delivery order.
func (b *Inbox) Values(port string) []any {
	msgs := b.Messages(port)

	values := make([]any, len(msgs))
	for i, m := range msgs {
		values[i] = m.Value
	}

	return values
}

// Clear removes every message.
func (b *Inbox) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()

	clear(b.bags)
	b.size = 0
}

// ValuesOf returns the values delivered to a port that have type T. Values of
// other types are skipped.
func ValuesOf[T any](b *Inbox, port string) []T {
	var values []T

	for _, m := range b.Messages(port) {
		if v, ok := m.Value.(T); ok {
			values = append(values, v)
		}
	}

	return values
}
