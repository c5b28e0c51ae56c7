package ir

import (
	"encoding/json"
	"fmt"

	"github.com/xuxxeth/sx/internal/address"
)

// Field limits in bytes. Every bounded field must also be at least 1 byte.
const (
	MaxUsernameLen    = 32
	MaxDisplayNameLen = 48
	MaxCIDLen         = 128
	MaxTopicLen       = 32
)

// discriminatorLen is reserved at the head of every stored record.
const discriminatorLen = 8

// Record is a fixed-shape unit of durable state at one derived address.
type Record interface {
	// Namespace is the address namespace the record type lives in.
	Namespace() address.Namespace

	// Owner is the identity allowed to mutate the record.
	Owner() address.Address

	// Size is the fixed storage size in bytes used for deposit accounting.
	Size() int
}

// Profile is a user profile, one per authority.
type Profile struct {
	Authority   address.Address `json:"authority"`
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	BioCID      string          `json:"bio_cid"`
	AvatarCID   string          `json:"avatar_cid"`
	CreatedAt   int64           `json:"created_at"`
	UpdatedAt   int64           `json:"updated_at"`
}

func (*Profile) Namespace() address.Namespace { return address.NamespaceProfile }
func (p *Profile) Owner() address.Address     { return p.Authority }
func (*Profile) Size() int {
	return discriminatorLen + 32 + 4 + MaxUsernameLen + 4 + MaxDisplayNameLen + 4 + MaxCIDLen + 4 + MaxCIDLen + 8 + 8
}

// UsernameRecord locks a username. Its existence is the uniqueness gate.
type UsernameRecord struct {
	Authority address.Address `json:"authority"`
	Username  string          `json:"username"`
}

func (*UsernameRecord) Namespace() address.Namespace { return address.NamespaceUsername }
func (u *UsernameRecord) Owner() address.Address     { return u.Authority }
func (*UsernameRecord) Size() int                    { return discriminatorLen + 32 + 4 + MaxUsernameLen }

// FollowEdge is a directed follow from Follower to Following.
type FollowEdge struct {
	Follower  address.Address `json:"follower"`
	Following address.Address `json:"following"`
	CreatedAt int64           `json:"created_at"`
}

func (*FollowEdge) Namespace() address.Namespace { return address.NamespaceFollow }
func (f *FollowEdge) Owner() address.Address     { return f.Follower }
func (*FollowEdge) Size() int                    { return discriminatorLen + 32 + 32 + 8 }

// PostIndex points at off-ledger post content.
// Visibility is opaque to the ledger.
type PostIndex struct {
	Author     address.Address `json:"author"`
	PostID     uint64          `json:"post_id"`
	ContentCID string          `json:"content_cid"`
	Visibility uint8           `json:"visibility"`
	CreatedAt  int64           `json:"created_at"`
}

func (*PostIndex) Namespace() address.Namespace { return address.NamespacePost }
func (p *PostIndex) Owner() address.Address     { return p.Author }
func (*PostIndex) Size() int                    { return discriminatorLen + 32 + 8 + 4 + MaxCIDLen + 1 + 8 }

// TipRecord is the durable receipt of a native value transfer.
type TipRecord struct {
	From      address.Address `json:"from"`
	To        address.Address `json:"to"`
	TipID     uint64          `json:"tip_id"`
	Amount    uint64          `json:"amount_lamports"`
	CreatedAt int64           `json:"created_at"`
}

func (*TipRecord) Namespace() address.Namespace { return address.NamespaceTip }
func (t *TipRecord) Owner() address.Address     { return t.From }
func (*TipRecord) Size() int                    { return discriminatorLen + 32 + 32 + 8 + 8 + 8 }

// LikeRecord is one like by Liker on (PostAuthor, PostID).
type LikeRecord struct {
	Liker      address.Address `json:"liker"`
	PostAuthor address.Address `json:"post_author"`
	PostID     uint64          `json:"post_id"`
	CreatedAt  int64           `json:"created_at"`
}

func (*LikeRecord) Namespace() address.Namespace { return address.NamespaceLike }
func (l *LikeRecord) Owner() address.Address     { return l.Liker }
func (*LikeRecord) Size() int                    { return discriminatorLen + 32 + 32 + 8 + 8 }

// CommentRecord points at off-ledger comment content.
type CommentRecord struct {
	Author     address.Address `json:"author"`
	PostAuthor address.Address `json:"post_author"`
	PostID     uint64          `json:"post_id"`
	CommentID  uint64          `json:"comment_id"`
	ContentCID string          `json:"content_cid"`
	CreatedAt  int64           `json:"created_at"`
}

func (*CommentRecord) Namespace() address.Namespace { return address.NamespaceComment }
func (c *CommentRecord) Owner() address.Address     { return c.Author }
func (*CommentRecord) Size() int {
	return discriminatorLen + 32 + 32 + 8 + 8 + 4 + MaxCIDLen + 8
}

// TopicIndex tags an author's post with a topic.
type TopicIndex struct {
	Topic     string          `json:"topic"`
	Author    address.Address `json:"author"`
	PostID    uint64          `json:"post_id"`
	CreatedAt int64           `json:"created_at"`
}

func (*TopicIndex) Namespace() address.Namespace { return address.NamespaceTopic }
func (t *TopicIndex) Owner() address.Address     { return t.Author }
func (*TopicIndex) Size() int                    { return discriminatorLen + 4 + MaxTopicLen + 32 + 8 + 8 }

// NewRecord returns an empty record for the namespace.
func NewRecord(ns address.Namespace) (Record, error) {
	switch ns {
	case address.NamespaceProfile:
		return &Profile{}, nil
	case address.NamespaceUsername:
		return &UsernameRecord{}, nil
	case address.NamespaceFollow:
		return &FollowEdge{}, nil
	case address.NamespacePost:
		return &PostIndex{}, nil
	case address.NamespaceTip:
		return &TipRecord{}, nil
	case address.NamespaceLike:
		return &LikeRecord{}, nil
	case address.NamespaceComment:
		return &CommentRecord{}, nil
	case address.NamespaceTopic:
		return &TopicIndex{}, nil
	default:
		return nil, fmt.Errorf("unknown record namespace %q", ns)
	}
}

// EncodeRecord serializes a record for storage.
func EncodeRecord(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.Namespace(), err)
	}
	return data, nil
}

// DecodeRecord parses a stored record of the given namespace.
func DecodeRecord(ns address.Namespace, data []byte) (Record, error) {
	r, err := NewRecord(ns)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", ns, err)
	}
	return r, nil
}
