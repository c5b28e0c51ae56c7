package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/address"
)

func TestRecordSizes(t *testing.T) {
	tests := []struct {
		record Record
		size   int
	}{
		{&Profile{}, 408},
		{&UsernameRecord{}, 76},
		{&FollowEdge{}, 80},
		{&PostIndex{}, 189},
		{&TipRecord{}, 96},
		{&LikeRecord{}, 88},
		{&CommentRecord{}, 228},
		{&TopicIndex{}, 92},
	}
	for _, tt := range tests {
		t.Run(string(tt.record.Namespace()), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.record.Size())
		})
	}
}

func TestRecordOwners(t *testing.T) {
	assert.Equal(t, identA, (&Profile{Authority: identA}).Owner())
	assert.Equal(t, identA, (&FollowEdge{Follower: identA, Following: identB}).Owner())
	assert.Equal(t, identA, (&TipRecord{From: identA, To: identB}).Owner())
	assert.Equal(t, identA, (&LikeRecord{Liker: identA, PostAuthor: identB}).Owner())
	assert.Equal(t, identA, (&CommentRecord{Author: identA, PostAuthor: identB}).Owner())
}

func TestNewRecordCoversEveryNamespace(t *testing.T) {
	for _, ns := range address.Namespaces {
		r, err := NewRecord(ns)
		require.NoError(t, err)
		assert.Equal(t, ns, r.Namespace())
	}

	_, err := NewRecord("bogus")
	assert.Error(t, err)
}

func TestEncodeDecodeRecord(t *testing.T) {
	in := &Profile{
		Authority:   identA,
		Username:    "bob",
		DisplayName: "Bob",
		BioCID:      "cid1",
		AvatarCID:   "cid2",
		CreatedAt:   100,
		UpdatedAt:   100,
	}

	data, err := EncodeRecord(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"display_name":"Bob"`)
	assert.Contains(t, string(data), identA.String())

	out, err := DecodeRecord(address.NamespaceProfile, data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	_, err := DecodeRecord(address.NamespaceTip, []byte(`{"from":"not-base58-0OIl"}`))
	assert.Error(t, err)
}
