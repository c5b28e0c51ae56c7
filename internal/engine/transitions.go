package engine

import (
	"context"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/transfer"
	"github.com/xuxxeth/sx/internal/validate"
)

// Action names, used as log fields and metric labels.
const (
	ActionCreateProfile   = "create_profile"
	ActionUpdateProfile   = "update_profile"
	ActionUpdateUsername  = "update_username"
	ActionFollow          = "follow"
	ActionUnfollow        = "unfollow"
	ActionCreatePostIndex = "create_post_index"
	ActionTip             = "tip"
	ActionLikePost        = "like_post"
	ActionUnlikePost      = "unlike_post"
	ActionCreateComment   = "create_comment"
	ActionIndexTopic      = "index_topic"
)

// CreateProfile creates the signer's profile and claims username for it.
// A taken username fails the whole transition with AddressOccupied.
func (e *Engine) CreateProfile(ctx context.Context, s Signer, username, displayName, bioCID, avatarCID string) (ir.Event, error) {
	return e.run(ctx, ActionCreateProfile, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.Username(username); err != nil {
			return nil, err
		}
		if err := validate.Profile(displayName, bioCID, avatarCID); err != nil {
			return nil, err
		}

		profileAddr, err := e.deriver.Profile(s.Authority)
		if err != nil {
			return nil, err
		}
		usernameAddr, err := e.deriver.Username(username)
		if err != nil {
			return nil, err
		}

		if err := mustBeFree(ctx, tx, profileAddr.Address, usernameAddr.Address); err != nil {
			return nil, err
		}

		usernameRec := &ir.UsernameRecord{Authority: s.Authority, Username: username}
		profile := &ir.Profile{
			Authority:   s.Authority,
			Username:    username,
			DisplayName: displayName,
			BioCID:      bioCID,
			AvatarCID:   avatarCID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := e.mustAfford(ctx, tx, s.payer(), e.deposit(profile, usernameRec)); err != nil {
			return nil, err
		}
		err = e.composer.Sequence(ctx, e.host.Atomic(),
			transfer.Step{
				Name:   "profile",
				Apply:  func(ctx context.Context) error { return tx.Create(ctx, profileAddr.Address, profile, s.payer()) },
				Revert: func(ctx context.Context) error { return tx.Close(ctx, profileAddr.Address, s.payer()) },
			},
			transfer.Step{
				Name:  "username",
				Apply: func(ctx context.Context) error { return tx.Create(ctx, usernameAddr.Address, usernameRec, s.payer()) },
			},
		)
		if err != nil {
			return nil, err
		}

		return ir.ProfileCreated{
			Authority:   profile.Authority,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			BioCID:      profile.BioCID,
			AvatarCID:   profile.AvatarCID,
		}, nil
	})
}

// UpdateProfile replaces the display name, bio and avatar of the signer's
// profile. The username is left alone. UpdatedAt takes the time source's
// reading, so with SystemTime an update in the same second as the create
// leaves UpdatedAt equal to CreatedAt.
func (e *Engine) UpdateProfile(ctx context.Context, s Signer, displayName, bioCID, avatarCID string) (ir.Event, error) {
	return e.run(ctx, ActionUpdateProfile, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.Profile(displayName, bioCID, avatarCID); err != nil {
			return nil, err
		}

		profileAddr, err := e.deriver.Profile(s.Authority)
		if err != nil {
			return nil, err
		}

		var updated ir.Profile
		err = tx.Update(ctx, profileAddr.Address, s.Authority, func(r ir.Record) error {
			p, ok := r.(*ir.Profile)
			if !ok {
				return ir.NewSeedsError(profileAddr, profileAddr)
			}
			p.DisplayName = displayName
			p.BioCID = bioCID
			p.AvatarCID = avatarCID
			p.UpdatedAt = now
			updated = *p
			return nil
		})
		if err != nil {
			return nil, err
		}
		return profileUpdated(&updated), nil
	})
}

// UpdateUsername moves the signer's profile to newUsername: the new
// UsernameRecord is created, the profile rewritten and the old record closed
// (refunding the beneficiary). On a host that cannot roll back, a failed
// write undoes the ones before it.
func (e *Engine) UpdateUsername(ctx context.Context, s Signer, newUsername string) (ir.Event, error) {
	return e.run(ctx, ActionUpdateUsername, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.Username(newUsername); err != nil {
			return nil, err
		}

		profileAddr, err := e.deriver.Profile(s.Authority)
		if err != nil {
			return nil, err
		}
		profile, err := readProfile(ctx, tx, profileAddr.Address)
		if err != nil {
			return nil, err
		}
		if profile.Authority != s.Authority {
			return nil, ir.NewUnauthorizedError(profileAddr, s.Authority)
		}

		oldAddr, err := e.deriver.Username(profile.Username)
		if err != nil {
			return nil, err
		}
		newAddr, err := e.deriver.Username(newUsername)
		if err != nil {
			return nil, err
		}
		if err := mustExist(ctx, tx, oldAddr.Address); err != nil {
			return nil, err
		}
		// Renaming to the current name lands here too: the address is taken.
		if err := mustBeFree(ctx, tx, newAddr.Address); err != nil {
			return nil, err
		}

		oldUsername, oldUpdatedAt := profile.Username, profile.UpdatedAt
		var updated ir.Profile
		err = e.composer.Sequence(ctx, e.host.Atomic(),
			transfer.Step{
				Name: "claim",
				Apply: func(ctx context.Context) error {
					return tx.Create(ctx, newAddr.Address, &ir.UsernameRecord{Authority: s.Authority, Username: newUsername}, s.payer())
				},
				Revert: func(ctx context.Context) error { return tx.Close(ctx, newAddr.Address, s.payer()) },
			},
			transfer.Step{
				Name: "profile",
				Apply: func(ctx context.Context) error {
					return tx.Update(ctx, profileAddr.Address, s.Authority, func(r ir.Record) error {
						p := r.(*ir.Profile)
						p.Username = newUsername
						p.UpdatedAt = now
						updated = *p
						return nil
					})
				},
				Revert: func(ctx context.Context) error {
					return tx.Update(ctx, profileAddr.Address, s.Authority, func(r ir.Record) error {
						p := r.(*ir.Profile)
						p.Username = oldUsername
						p.UpdatedAt = oldUpdatedAt
						return nil
					})
				},
			},
			transfer.Step{
				Name:  "release",
				Apply: func(ctx context.Context) error { return tx.Close(ctx, oldAddr.Address, s.beneficiary()) },
			},
		)
		if err != nil {
			return nil, err
		}
		return profileUpdated(&updated), nil
	})
}

// Follow creates the edge from the signer to following. Following twice is
// rejected with AddressOccupied.
func (e *Engine) Follow(ctx context.Context, s Signer, following address.Address) (ir.Event, error) {
	return e.run(ctx, ActionFollow, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := e.lenient(ActionFollow, validate.DistinctParties(s.Authority, following)); err != nil {
			return nil, err
		}

		edgeAddr, err := e.deriver.Follow(s.Authority, following)
		if err != nil {
			return nil, err
		}
		edge := &ir.FollowEdge{Follower: s.Authority, Following: following, CreatedAt: now}
		if err := tx.Create(ctx, edgeAddr.Address, edge, s.payer()); err != nil {
			return nil, err
		}
		return ir.Followed{Follower: edge.Follower, Following: edge.Following}, nil
	})
}

// Unfollow closes the edge from the signer to following. The derived address
// is the only check that the edge belongs to the signer.
func (e *Engine) Unfollow(ctx context.Context, s Signer, following address.Address) (ir.Event, error) {
	return e.run(ctx, ActionUnfollow, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		edgeAddr, err := e.deriver.Follow(s.Authority, following)
		if err != nil {
			return nil, err
		}
		if err := tx.Close(ctx, edgeAddr.Address, s.beneficiary()); err != nil {
			return nil, err
		}
		return ir.Unfollowed{Follower: s.Authority, Following: following}, nil
	})
}

// CreatePostIndex records that the signer published postID. visibility is
// opaque unless the engine is strict.
func (e *Engine) CreatePostIndex(ctx context.Context, s Signer, postID uint64, contentCID string, visibility uint8) (ir.Event, error) {
	return e.run(ctx, ActionCreatePostIndex, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.CID(contentCID); err != nil {
			return nil, err
		}
		if err := e.lenient(ActionCreatePostIndex, validate.KnownVisibility(visibility)); err != nil {
			return nil, err
		}

		postAddr, err := e.deriver.Post(s.Authority, postID)
		if err != nil {
			return nil, err
		}
		post := &ir.PostIndex{
			Author:     s.Authority,
			PostID:     postID,
			ContentCID: contentCID,
			Visibility: visibility,
			CreatedAt:  now,
		}
		if err := tx.Create(ctx, postAddr.Address, post, s.payer()); err != nil {
			return nil, err
		}
		return ir.PostIndexed{
			Author:     post.Author,
			PostID:     post.PostID,
			ContentCID: post.ContentCID,
			Visibility: post.Visibility,
		}, nil
	})
}

// Tip moves amount lamports from the signer to `to` and writes a TipRecord
// under tipID. Both happen or neither does.
func (e *Engine) Tip(ctx context.Context, s Signer, to address.Address, tipID, amount uint64) (ir.Event, error) {
	return e.run(ctx, ActionTip, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := e.lenient(ActionTip, validate.PositiveAmount(amount)); err != nil {
			return nil, err
		}

		tipAddr, err := e.deriver.Tip(s.Authority, tipID)
		if err != nil {
			return nil, err
		}
		if err := mustBeFree(ctx, tx, tipAddr.Address); err != nil {
			return nil, err
		}

		tip := &ir.TipRecord{From: s.Authority, To: to, TipID: tipID, Amount: amount, CreatedAt: now}
		if s.payer() == s.Authority {
			if err := e.mustAfford(ctx, tx, s.Authority, amount+e.deposit(tip)); err != nil {
				return nil, err
			}
		} else if err := e.mustAfford(ctx, tx, s.payer(), e.deposit(tip)); err != nil {
			return nil, err
		}

		err = e.composer.TransferThenRecord(ctx, tx, e.host.Atomic(), s.Authority, to, amount,
			func(ctx context.Context, tx host.Tx) error {
				return tx.Create(ctx, tipAddr.Address, tip, s.payer())
			})
		if err != nil {
			return nil, err
		}
		return ir.Tipped{From: tip.From, To: tip.To, TipID: tip.TipID, Amount: tip.Amount}, nil
	})
}

// LikePost records the signer's like of (postAuthor, postID). The post
// itself is not required to exist.
func (e *Engine) LikePost(ctx context.Context, s Signer, postAuthor address.Address, postID uint64) (ir.Event, error) {
	return e.run(ctx, ActionLikePost, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		likeAddr, err := e.deriver.Like(s.Authority, postAuthor, postID)
		if err != nil {
			return nil, err
		}
		like := &ir.LikeRecord{Liker: s.Authority, PostAuthor: postAuthor, PostID: postID, CreatedAt: now}
		if err := tx.Create(ctx, likeAddr.Address, like, s.payer()); err != nil {
			return nil, err
		}
		return ir.PostLiked{Liker: like.Liker, PostAuthor: like.PostAuthor, PostID: like.PostID}, nil
	})
}

// UnlikePost closes the like record at likeAddr. The post id is taken from
// the record; the address re-derived from (signer, postAuthor, post id) must
// equal likeAddr or the call fails with ConstraintSeeds.
func (e *Engine) UnlikePost(ctx context.Context, s Signer, postAuthor, likeAddr address.Address) (ir.Event, error) {
	return e.run(ctx, ActionUnlikePost, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		rec, ok, err := tx.Read(ctx, likeAddr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ir.NewNotFoundError(likeAddr)
		}
		like, isLike := rec.(*ir.LikeRecord)
		if !isLike {
			return nil, ir.NewSeedsError(likeAddr, likeAddr)
		}

		want, err := e.deriver.Like(s.Authority, postAuthor, like.PostID)
		if err != nil {
			return nil, err
		}
		if want.Address != likeAddr {
			return nil, ir.NewSeedsError(likeAddr, want)
		}

		if err := tx.Close(ctx, likeAddr, s.beneficiary()); err != nil {
			return nil, err
		}
		return ir.PostUnliked{Liker: s.Authority, PostAuthor: postAuthor, PostID: like.PostID}, nil
	})
}

// CreateComment records the signer's comment commentID on (postAuthor,
// postID).
func (e *Engine) CreateComment(ctx context.Context, s Signer, postAuthor address.Address, postID, commentID uint64, contentCID string) (ir.Event, error) {
	return e.run(ctx, ActionCreateComment, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.CID(contentCID); err != nil {
			return nil, err
		}

		commentAddr, err := e.deriver.Comment(s.Authority, postID, commentID)
		if err != nil {
			return nil, err
		}
		comment := &ir.CommentRecord{
			Author:     s.Authority,
			PostAuthor: postAuthor,
			PostID:     postID,
			CommentID:  commentID,
			ContentCID: contentCID,
			CreatedAt:  now,
		}
		if err := tx.Create(ctx, commentAddr.Address, comment, s.payer()); err != nil {
			return nil, err
		}
		return ir.CommentCreated{
			Author:     comment.Author,
			PostAuthor: comment.PostAuthor,
			PostID:     comment.PostID,
			CommentID:  comment.CommentID,
			ContentCID: comment.ContentCID,
		}, nil
	})
}

// IndexTopic tags the signer's post postID with topic.
func (e *Engine) IndexTopic(ctx context.Context, s Signer, postID uint64, topic string) (ir.Event, error) {
	return e.run(ctx, ActionIndexTopic, func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error) {
		if err := validate.Topic(topic); err != nil {
			return nil, err
		}

		topicAddr, err := e.deriver.Topic(topic, s.Authority, postID)
		if err != nil {
			return nil, err
		}
		idx := &ir.TopicIndex{Topic: topic, Author: s.Authority, PostID: postID, CreatedAt: now}
		if err := tx.Create(ctx, topicAddr.Address, idx, s.payer()); err != nil {
			return nil, err
		}
		return ir.TopicIndexed{Topic: idx.Topic, Author: idx.Author, PostID: idx.PostID}, nil
	})
}

func profileUpdated(p *ir.Profile) ir.ProfileUpdated {
	return ir.ProfileUpdated{
		Authority:   p.Authority,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		BioCID:      p.BioCID,
		AvatarCID:   p.AvatarCID,
	}
}

func readProfile(ctx context.Context, tx host.Tx, addr address.Address) (*ir.Profile, error) {
	rec, ok, err := tx.Read(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ir.NewNotFoundError(addr)
	}
	p, isProfile := rec.(*ir.Profile)
	if !isProfile {
		return nil, ir.NewSeedsError(addr, addr)
	}
	return p, nil
}

func (e *Engine) deposit(recs ...ir.Record) uint64 {
	rent := e.host.Rent()
	var total uint64
	for _, r := range recs {
		total += rent.Deposit(r.Size())
	}
	return total
}

func (e *Engine) mustAfford(ctx context.Context, tx host.Tx, who address.Address, need uint64) error {
	if need == 0 {
		return nil
	}
	have, err := tx.Balance(ctx, who)
	if err != nil {
		return err
	}
	if have < need {
		return ir.NewInsufficientFundsError(who, have, need)
	}
	return nil
}

func mustBeFree(ctx context.Context, tx host.Tx, addrs ...address.Address) error {
	for _, addr := range addrs {
		_, ok, err := tx.Read(ctx, addr)
		if err != nil {
			return err
		}
		if ok {
			return ir.NewOccupiedError(addr)
		}
	}
	return nil
}

func mustExist(ctx context.Context, tx host.Tx, addr address.Address) error {
	_, ok, err := tx.Read(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		return ir.NewNotFoundError(addr)
	}
	return nil
}
