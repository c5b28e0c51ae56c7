package address

import (
	"fmt"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// DefaultProgram is the program key addresses are derived under unless
// configured otherwise.
var DefaultProgram = MustParse("8TysGbj7Xgj9zzctWCuSV8wPot3Jh6Q6uzrVhRj4nxwp")

const (
	defaultExpiration = 10 * time.Minute
	cleanupInterval   = 20 * time.Minute
)

// Deriver derives addresses under one program key and memoizes the result.
// A derivation may hash up to 256 candidates, and the same keys (a user's
// profile, a popular username) are derived over and over.
//
// Thread-safety: Deriver is safe for concurrent use.
type Deriver struct {
	program Address
	cache   *cache.Cache
}

// NewDeriver creates a Deriver for the given program key.
func NewDeriver(program Address) *Deriver {
	return &Deriver{
		program: program,
		cache:   cache.New(defaultExpiration, cleanupInterval),
	}
}

// Program returns the program key.
func (d *Deriver) Program() Address {
	return d.program
}

// Derive derives (ns, parts) under the deriver's program key.
func (d *Deriver) Derive(ns Namespace, parts ...[]byte) (Derived, error) {
	if _, err := seedsFor(ns, parts); err != nil {
		return Derived{}, fmt.Errorf("derive %s: %w", ns, err)
	}
	key := cacheKey(ns, parts)
	if v, ok := d.cache.Get(key); ok {
		return v.(Derived), nil
	}
	derived, err := Derive(d.program, ns, parts...)
	if err != nil {
		return Derived{}, fmt.Errorf("derive %s: %w", ns, err)
	}
	d.cache.SetDefault(key, derived)
	return derived, nil
}

// Verify re-derives (ns, parts) and compares against addr.
func (d *Deriver) Verify(ns Namespace, parts [][]byte, addr Address) error {
	derived, err := d.Derive(ns, parts...)
	if err != nil {
		return err
	}
	if derived.Address != addr {
		return fmt.Errorf("%w: %s %s", ErrProofMismatch, ns, addr)
	}
	return nil
}

// Profile derives the profile address of an authority.
func (d *Deriver) Profile(authority Address) (Derived, error) {
	return d.Derive(NamespaceProfile, authority[:])
}

// Username derives the lock address of a username.
func (d *Deriver) Username(username string) (Derived, error) {
	return d.Derive(NamespaceUsername, []byte(username))
}

// Follow derives the edge address of an ordered (follower, following) pair.
func (d *Deriver) Follow(follower, following Address) (Derived, error) {
	return d.Derive(NamespaceFollow, follower[:], following[:])
}

// Post derives the address of an author's post index.
func (d *Deriver) Post(author Address, postID uint64) (Derived, error) {
	return d.Derive(NamespacePost, author[:], U64(postID))
}

// Tip derives the receipt address of a sender's tip.
func (d *Deriver) Tip(from Address, tipID uint64) (Derived, error) {
	return d.Derive(NamespaceTip, from[:], U64(tipID))
}

// Like derives the like address for (liker, post).
func (d *Deriver) Like(liker, postAuthor Address, postID uint64) (Derived, error) {
	return d.Derive(NamespaceLike, liker[:], postAuthor[:], U64(postID))
}

// Comment derives the address of an author's comment on a post.
// The post author is not part of the key.
func (d *Deriver) Comment(author Address, postID, commentID uint64) (Derived, error) {
	return d.Derive(NamespaceComment, author[:], U64(postID), U64(commentID))
}

// Topic derives the address of a topic tag on an author's post.
func (d *Deriver) Topic(topic string, author Address, postID uint64) (Derived, error) {
	return d.Derive(NamespaceTopic, []byte(topic), author[:], U64(postID))
}

// cacheKey length-prefixes each seed so ("ab","c") and ("a","bc") differ.
func cacheKey(ns Namespace, parts [][]byte) string {
	var b strings.Builder
	b.WriteString(string(ns))
	for _, p := range parts {
		b.WriteByte(byte(len(p)))
		b.Write(p)
	}
	return b.String()
}
