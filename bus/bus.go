// bus.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. Any comparable value works;
// strings and ints are the norm.
type Token = any

// Wildcards. "+" matches exactly one level, "#" matches the remainder
// (including none, so "a/#" also matches "a").
const (
	WildOne  = "+"
	WildRest = "#"
)

// Topic is a sequence of tokens.
type Topic []Token

// T builds a topic and panics on non-comparable tokens.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		if tok == nil || !reflect.TypeOf(tok).Comparable() {
			panic(fmt.Sprintf("bus: non-comparable topic token %T", tok))
		}
	}
	return Topic(tokens)
}

func (t Topic) Len() int { return len(t) }

// At returns the token at i, or nil when out of range.
func (t Topic) At(i int) Token {
	if i < 0 || i >= len(t) {
		return nil
	}
	return t[i]
}

// Append returns a new topic with tokens appended; t is not modified.
func (t Topic) Append(tokens ...Token) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, T(tokens...)...)
}

// Equal reports token-wise equality.
func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return m != nil && len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu    sync.RWMutex
	root  *node
	qLen  int
	reqID atomic.Uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage is a convenience constructor.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and replays any
// retained messages its pattern matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	collectRetained(b.root, topic, 0, &retained)
	for _, m := range retained {
		deliver(sub, m)
	}
}

func collectRetained(n *node, pattern Topic, i int, out *[]*Message) {
	if i == len(pattern) {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[i] {
	case WildRest:
		collectAll(n, out)
	case WildOne:
		for _, c := range n.children {
			collectRetained(c, pattern, i+1, out)
		}
	default:
		if c, ok := n.children[pattern[i]]; ok {
			collectRetained(c, pattern, i+1, out)
		}
	}
}

func collectAll(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		collectAll(c, out)
	}
}

// collectSubs gathers subscriptions whose pattern matches topic.
func collectSubs(n *node, topic Topic, i int, out *[]*Subscription) {
	if h, ok := n.children[WildRest]; ok {
		*out = append(*out, h.subs...)
	}
	if i == len(topic) {
		*out = append(*out, n.subs...)
		return
	}
	if c, ok := n.children[topic[i]]; ok {
		collectSubs(c, topic, i+1, out)
	}
	if c, ok := n.children[WildOne]; ok && topic[i] != WildOne {
		collectSubs(c, topic, i+1, out)
	}
}

// deliver never blocks: when the queue is full the oldest message is dropped.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- msg:
	default:
	}
}

// Publish delivers a message to all subscribers whose pattern matches its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			if n.children == nil {
				n.children = make(map[Token]*node)
			}
			child, ok := n.children[tok]
			if !ok {
				child = &node{}
				n.children[tok] = child
			}
			n = child
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}

	var subs []*Subscription
	collectSubs(b.root, msg.Topic, 0, &subs)
	for _, sub := range subs {
		deliver(sub, msg)
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		bus:   c.bus,
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub.topic, sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

var ErrNoReply = errors.New("bus: no reply")

// Request assigns a private reply topic to msg, subscribes to it and
// publishes msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	id := c.bus.reqID.Add(1)
	msg.ReplyTo = T("_reply", c.id, int(id))
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, ErrNoReply
		}
		return m, nil
	}
}

// Reply publishes payload to the request's reply topic. It is a no-op if
// the request did not ask for one.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
