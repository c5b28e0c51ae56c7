package address

import (
	"fmt"
	"strconv"
)

// keyArity is the number of key parts each namespace takes.
var keyArity = map[Namespace]int{
	NamespaceProfile:  1,
	NamespaceUsername: 1,
	NamespaceFollow:   2,
	NamespacePost:     2,
	NamespaceTip:      2,
	NamespaceLike:     3,
	NamespaceComment:  3,
	NamespaceTopic:    3,
}

// KeyArity returns how many key parts ns takes, or false for an unknown
// namespace.
func KeyArity(ns Namespace) (int, bool) {
	n, ok := keyArity[ns]
	return n, ok
}

// KeyError reports a key part that does not parse.
type KeyError struct {
	Namespace Namespace
	Index     int
	Value     string
	Err       error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s key[%d] %q: %v", e.Namespace, e.Index, e.Value, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Key derives the address of a record from its key written as text:
// identities in base58, numbers in decimal, strings verbatim. Parts come in
// the order the typed helpers take them, e.g. like is (liker, post author,
// post id) and topic is (topic, author, post id).
func (d *Deriver) Key(ns Namespace, parts ...string) (Derived, error) {
	want, ok := keyArity[ns]
	if !ok {
		return Derived{}, fmt.Errorf("unknown namespace %q", ns)
	}
	if len(parts) != want {
		return Derived{}, fmt.Errorf("%s takes %d key part(s), got %d", ns, want, len(parts))
	}

	k := keyParser{ns: ns, parts: parts}
	var out Derived
	var err error
	switch ns {
	case NamespaceProfile:
		out, err = d.Profile(k.id(0))
	case NamespaceUsername:
		out, err = d.Username(parts[0])
	case NamespaceFollow:
		out, err = d.Follow(k.id(0), k.id(1))
	case NamespacePost:
		out, err = d.Post(k.id(0), k.num(1))
	case NamespaceTip:
		out, err = d.Tip(k.id(0), k.num(1))
	case NamespaceLike:
		out, err = d.Like(k.id(0), k.id(1), k.num(2))
	case NamespaceComment:
		out, err = d.Comment(k.id(0), k.num(1), k.num(2))
	case NamespaceTopic:
		out, err = d.Topic(parts[0], k.id(1), k.num(2))
	}
	if k.err != nil {
		return Derived{}, k.err
	}
	return out, err
}

// keyParser parses key parts and keeps the first failure.
type keyParser struct {
	ns    Namespace
	parts []string
	err   error
}

func (k *keyParser) fail(i int, err error) {
	if k.err == nil {
		k.err = &KeyError{Namespace: k.ns, Index: i, Value: k.parts[i], Err: err}
	}
}

func (k *keyParser) id(i int) Address {
	a, err := Parse(k.parts[i])
	if err != nil {
		k.fail(i, err)
	}
	return a
}

func (k *keyParser) num(i int) uint64 {
	n, err := strconv.ParseUint(k.parts[i], 10, 64)
	if err != nil {
		k.fail(i, err)
	}
	return n
}
