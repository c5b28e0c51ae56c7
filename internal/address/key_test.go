package address

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMatchesTypedHelpers(t *testing.T) {
	d := NewDeriver(DefaultProgram)
	a, b := alice.String(), bob.String()

	tests := []struct {
		ns    Namespace
		parts []string
		want  func() (Derived, error)
	}{
		{NamespaceProfile, []string{a}, func() (Derived, error) { return d.Profile(alice) }},
		{NamespaceUsername, []string{"alice"}, func() (Derived, error) { return d.Username("alice") }},
		{NamespaceFollow, []string{a, b}, func() (Derived, error) { return d.Follow(alice, bob) }},
		{NamespacePost, []string{a, "7"}, func() (Derived, error) { return d.Post(alice, 7) }},
		{NamespaceTip, []string{a, "1"}, func() (Derived, error) { return d.Tip(alice, 1) }},
		{NamespaceLike, []string{a, b, "7"}, func() (Derived, error) { return d.Like(alice, bob, 7) }},
		{NamespaceComment, []string{a, "7", "2"}, func() (Derived, error) { return d.Comment(alice, 7, 2) }},
		{NamespaceTopic, []string{"golang", a, "7"}, func() (Derived, error) { return d.Topic("golang", alice, 7) }},
	}
	require.Len(t, tests, len(Namespaces), "every namespace has a key form")

	for _, tt := range tests {
		t.Run(string(tt.ns), func(t *testing.T) {
			got, err := d.Key(tt.ns, tt.parts...)
			require.NoError(t, err)
			want, err := tt.want()
			require.NoError(t, err)
			assert.Equal(t, want, got)

			n, ok := KeyArity(tt.ns)
			assert.True(t, ok)
			assert.Equal(t, len(tt.parts), n)
		})
	}
}

func TestKeyRejects(t *testing.T) {
	d := NewDeriver(DefaultProgram)

	_, err := d.Key("retweet", "x")
	assert.ErrorContains(t, err, "unknown namespace")

	_, err = d.Key(NamespaceFollow, alice.String())
	assert.ErrorContains(t, err, "takes 2 key part(s), got 1")

	_, err = d.Key(NamespaceLike, alice.String(), "not-base58!", "1")
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 1, keyErr.Index)

	_, err = d.Key(NamespacePost, alice.String(), "-1")
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 1, keyErr.Index)
}
