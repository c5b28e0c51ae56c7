package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/ir"
)

// NewFollowCommand creates the follow command.
func NewFollowCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:           "follow <identity>",
		Short:         "Follow an identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, following, err := signerAndIdentity(&signer, args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.Follow(ctx, s, following)
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewUnfollowCommand creates the unfollow command.
func NewUnfollowCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:           "unfollow <identity>",
		Short:         "Remove a follow edge and refund its deposit",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, following, err := signerAndIdentity(&signer, args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.Unfollow(ctx, s, following)
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewPostCommand creates the post command.
func NewPostCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		signer     signerFlags
		visibility uint8
	)
	cmd := &cobra.Command{
		Use:   "post <post-id> <content-cid>",
		Short: "Index a post by its content id",
		Long: `Index one of the signer's posts. post-id must be unique per author.

Example:
  sx post 1 bafybeigdyrzt --as <identity> --visibility 0`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			s, err := signer.signer()
			if err != nil {
				return out.Reject(err)
			}
			postID, err := parseU64("post id", args[0])
			if err != nil {
				return out.Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.CreatePostIndex(ctx, s, postID, args[1], visibility)
			})
		},
	}
	signer.register(cmd)
	cmd.Flags().Uint8Var(&visibility, "visibility", 0, "visibility tag (0 public, 1 followers)")
	return cmd
}

// NewLikeCommand creates the like command.
func NewLikeCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:           "like <post-author> <post-id>",
		Short:         "Like a post",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, author, postID, err := signerAndPost(&signer, args[0], args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.LikePost(ctx, s, author, postID)
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewUnlikeCommand creates the unlike command.
func NewUnlikeCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:   "unlike <post-author> <post-id>",
		Short: "Remove a like and refund its deposit",
		Long: `Remove the signer's like of a post. The like's address is derived from
the signer, post-author and post-id.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, author, postID, err := signerAndPost(&signer, args[0], args[1])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				like, err := e.Deriver().Like(s.Authority, author, postID)
				if err != nil {
					return ir.Event{}, err
				}
				return e.UnlikePost(ctx, s, author, like.Address)
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewCommentCommand creates the comment command.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:           "comment <post-author> <post-id> <comment-id> <content-cid>",
		Short:         "Comment on a post",
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			s, author, postID, err := signerAndPost(&signer, args[0], args[1])
			if err != nil {
				return out.Reject(err)
			}
			commentID, err := parseU64("comment id", args[2])
			if err != nil {
				return out.Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.CreateComment(ctx, s, author, postID, commentID, args[3])
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewTopicCommand creates the topic command.
func NewTopicCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:           "topic <post-id> <topic>",
		Short:         "Tag one of the signer's posts with a topic",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			s, err := signer.signer()
			if err != nil {
				return out.Reject(err)
			}
			postID, err := parseU64("post id", args[0])
			if err != nil {
				return out.Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.IndexTopic(ctx, s, postID, args[1])
			})
		},
	}
	signer.register(cmd)
	return cmd
}
