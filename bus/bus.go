// bus.go
package bus

import (
	"strconv"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path, a string or an integer.
type Token struct {
	kind byte // 0 = string, 1 = int
	sval string
	ival int
}

func S(s string) Token { return Token{kind: 0, sval: s} }
func I(i int) Token    { return Token{kind: 1, ival: i} }

// Wildcards, valid in subscription filters only. Any matches one level;
// Rest matches every remaining level, including none.
var (
	Any  = S("+")
	Rest = S("#")
)

func (t Token) String() string {
	if t.kind == 1 {
		return strconv.Itoa(t.ival)
	}
	return t.sval
}

// Topic is a sequence of tokens.
type Topic []Token

// T builds a topic from strings and ints.
func T(parts ...any) Topic {
	t := make(Topic, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case Token:
			t = append(t, v)
		case int:
			t = append(t, I(v))
		case string:
			t = append(t, S(v))
		case interface{ String() string }:
			t = append(t, S(v.String()))
		default:
			panic("bus: unsupported topic token")
		}
	}
	return t
}

func (t Topic) String() string {
	parts := make([]string, len(t))
	for i, tok := range t {
		parts[i] = tok.String()
	}
	return strings.Join(parts, "/")
}

// -----------------------------------------------------------------------------
// Message + Subscription
// -----------------------------------------------------------------------------

// Message is one publication. A retained message is also kept per topic and
// handed to later subscribers; a retained message with a nil payload clears
// the topic.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	filter Topic
	ch     chan *Message
	bus    *Bus
	closed bool
}

func (s *Subscription) Topic() Topic             { return s.filter }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.bus.unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

// Bus routes messages between the kernel and its observers. Publish never
// blocks: a subscriber whose queue is full loses its oldest message.
type Bus struct {
	mu   sync.Mutex
	subs *node // keyed by filter
	kept *node // retained messages, keyed by concrete topic
	qLen int
}

// New creates a bus with the given per-subscription queue length.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{subs: &node{}, kept: &node{}, qLen: queueLen}
}

// Subscribe registers filter and immediately queues every retained message
// it matches.
func (b *Bus) Subscribe(filter Topic) *Subscription {
	sub := &Subscription{filter: filter, ch: make(chan *Message, b.qLen), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	for _, tok := range filter {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	var kept []*Message
	collect(b.kept, filter, &kept)
	for _, m := range kept {
		deliver(sub, m)
	}
	return sub
}

// Publish delivers msg to every matching subscription.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.kept
		for _, tok := range msg.Topic {
			n = n.child(tok, msg.Payload != nil)
			if n == nil {
				break
			}
		}
		if n != nil {
			if msg.Payload == nil {
				n.retained = nil
			} else {
				n.retained = msg
			}
		}
	}

	var subs []*Subscription
	match(b.subs, msg.Topic, &subs)
	for _, s := range subs {
		deliver(s, msg)
	}
}

// Retained returns the message kept for topic, if any.
func (b *Bus) Retained(topic Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.kept
	for _, tok := range topic {
		if n = n.child(tok, false); n == nil {
			return nil, false
		}
	}
	return n.retained, n.retained != nil
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	n := b.subs
	stack := []*node{n}
	for _, tok := range sub.filter {
		if n = n.child(tok, false); n == nil {
			return
		}
		stack = append(stack, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(sub.filter) - 1; i >= 0; i-- {
		parent, c := stack[i], stack[i+1]
		if len(c.subs) != 0 || len(c.children) != 0 {
			break
		}
		delete(parent.children, sub.filter[i])
	}
}

// match appends the subscriptions whose filter matches topic.
func match(n *node, topic Topic, out *[]*Subscription) {
	if r := n.child(Rest, false); r != nil {
		*out = append(*out, r.subs...)
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if c := n.child(topic[0], false); c != nil {
		match(c, topic[1:], out)
	}
	if topic[0] != Any {
		if c := n.child(Any, false); c != nil {
			match(c, topic[1:], out)
		}
	}
}

// collect appends the retained messages under n that filter matches.
func collect(n *node, filter Topic, out *[]*Message) {
	if len(filter) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch filter[0] {
	case Rest:
		walk(n, out)
	case Any:
		for _, c := range n.children {
			collect(c, filter[1:], out)
		}
	default:
		if c := n.child(filter[0], false); c != nil {
			collect(c, filter[1:], out)
		}
	}
}

func walk(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		walk(c, out)
	}
}

func deliver(s *Subscription, m *Message) {
	if s.closed {
		return
	}
	select {
	case s.ch <- m:
		return
	default:
	}
	// drop oldest
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- m:
	default:
	}
}
