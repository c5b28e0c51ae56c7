package ir

import (
	"encoding/json"
	"fmt"

	"github.com/xuxxeth/sx/internal/address"
)

// EventKind names an event payload type.
type EventKind string

const (
	KindProfileCreated EventKind = "ProfileCreated"
	KindProfileUpdated EventKind = "ProfileUpdated"
	KindFollowed       EventKind = "Followed"
	KindUnfollowed     EventKind = "Unfollowed"
	KindPostIndexed    EventKind = "PostIndexed"
	KindTipped         EventKind = "Tipped"
	KindPostLiked      EventKind = "PostLiked"
	KindPostUnliked    EventKind = "PostUnliked"
	KindCommentCreated EventKind = "CommentCreated"
	KindTopicIndexed   EventKind = "TopicIndexed"
)

// Payload is the typed body of an event. Payloads carry post-transition
// values, never deltas.
type Payload interface {
	Kind() EventKind
}

// ProfileCreated is emitted by CreateProfile.
type ProfileCreated struct {
	Authority   address.Address `json:"authority"`
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	BioCID      string          `json:"bio_cid"`
	AvatarCID   string          `json:"avatar_cid"`
}

// ProfileUpdated is emitted by UpdateProfile and UpdateUsername.
type ProfileUpdated struct {
	Authority   address.Address `json:"authority"`
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	BioCID      string          `json:"bio_cid"`
	AvatarCID   string          `json:"avatar_cid"`
}

type Followed struct {
	Follower  address.Address `json:"follower"`
	Following address.Address `json:"following"`
}

type Unfollowed struct {
	Follower  address.Address `json:"follower"`
	Following address.Address `json:"following"`
}

type PostIndexed struct {
	Author     address.Address `json:"author"`
	PostID     uint64          `json:"post_id"`
	ContentCID string          `json:"content_cid"`
	Visibility uint8           `json:"visibility"`
}

type Tipped struct {
	From   address.Address `json:"from"`
	To     address.Address `json:"to"`
	TipID  uint64          `json:"tip_id"`
	Amount uint64          `json:"amount_lamports"`
}

type PostLiked struct {
	Liker      address.Address `json:"liker"`
	PostAuthor address.Address `json:"post_author"`
	PostID     uint64          `json:"post_id"`
}

type PostUnliked struct {
	Liker      address.Address `json:"liker"`
	PostAuthor address.Address `json:"post_author"`
	PostID     uint64          `json:"post_id"`
}

type CommentCreated struct {
	Author     address.Address `json:"author"`
	PostAuthor address.Address `json:"post_author"`
	PostID     uint64          `json:"post_id"`
	CommentID  uint64          `json:"comment_id"`
	ContentCID string          `json:"content_cid"`
}

type TopicIndexed struct {
	Topic  string          `json:"topic"`
	Author address.Address `json:"author"`
	PostID uint64          `json:"post_id"`
}

func (ProfileCreated) Kind() EventKind { return KindProfileCreated }
func (ProfileUpdated) Kind() EventKind { return KindProfileUpdated }
func (Followed) Kind() EventKind       { return KindFollowed }
func (Unfollowed) Kind() EventKind     { return KindUnfollowed }
func (PostIndexed) Kind() EventKind    { return KindPostIndexed }
func (Tipped) Kind() EventKind         { return KindTipped }
func (PostLiked) Kind() EventKind      { return KindPostLiked }
func (PostUnliked) Kind() EventKind    { return KindPostUnliked }
func (CommentCreated) Kind() EventKind { return KindCommentCreated }
func (TopicIndexed) Kind() EventKind   { return KindTopicIndexed }

// Event is one append-only entry in the event stream.
type Event struct {
	// Seq is the position in the log, assigned by the engine's logical clock.
	Seq int64 `json:"seq"`

	// ID is the content-addressed hash of (kind, payload, seq).
	ID string `json:"id"`

	// Transition correlates the event with the invocation that produced it.
	Transition string `json:"transition"`

	Kind    EventKind `json:"kind"`
	Payload Payload   `json:"payload"`
}

// NewEvent builds an event and computes its ID.
func NewEvent(seq int64, transition string, payload Payload) (Event, error) {
	id, err := EventID(payload, seq)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Seq:        seq,
		ID:         id,
		Transition: transition,
		Kind:       payload.Kind(),
		Payload:    payload,
	}, nil
}

// UnmarshalJSON decodes the payload according to Kind.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq        int64           `json:"seq"`
		ID         string          `json:"id"`
		Transition string          `json:"transition"`
		Kind       EventKind       `json:"kind"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	*e = Event{
		Seq:        raw.Seq,
		ID:         raw.ID,
		Transition: raw.Transition,
		Kind:       raw.Kind,
		Payload:    payload,
	}
	return nil
}

// EncodePayload serializes a payload as canonical JSON.
func EncodePayload(p Payload) ([]byte, error) {
	fields, err := ToCanonicalMap(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return MarshalCanonical(fields)
}

// DecodePayload parses a payload of the given kind.
func DecodePayload(kind EventKind, data []byte) (Payload, error) {
	var p Payload
	var err error
	switch kind {
	case KindProfileCreated:
		p, err = decodeAs[ProfileCreated](data)
	case KindProfileUpdated:
		p, err = decodeAs[ProfileUpdated](data)
	case KindFollowed:
		p, err = decodeAs[Followed](data)
	case KindUnfollowed:
		p, err = decodeAs[Unfollowed](data)
	case KindPostIndexed:
		p, err = decodeAs[PostIndexed](data)
	case KindTipped:
		p, err = decodeAs[Tipped](data)
	case KindPostLiked:
		p, err = decodeAs[PostLiked](data)
	case KindPostUnliked:
		p, err = decodeAs[PostUnliked](data)
	case KindCommentCreated:
		p, err = decodeAs[CommentCreated](data)
	case KindTopicIndexed:
		p, err = decodeAs[TopicIndexed](data)
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
