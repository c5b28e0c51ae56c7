package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/ir"
)

// profileFields are the editable profile fields.
type profileFields struct {
	displayName string
	bioCID      string
	avatarCID   string
}

func (f *profileFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.displayName, "display-name", "", "display name (1-48 bytes)")
	cmd.Flags().StringVar(&f.bioCID, "bio", "", "content id of the bio (1-128 bytes)")
	cmd.Flags().StringVar(&f.avatarCID, "avatar", "", "content id of the avatar (1-128 bytes)")
}

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create, update or rename a profile",
	}
	cmd.AddCommand(newProfileCreateCommand(rootOpts))
	cmd.AddCommand(newProfileUpdateCommand(rootOpts))
	cmd.AddCommand(newProfileRenameCommand(rootOpts))
	return cmd
}

func newProfileCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		signer signerFlags
		fields profileFields
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a profile and claim its username",
		Long: `Create the signer's profile and claim a username for it.

Fails with AddressOccupied if the signer already has a profile or the
username is taken.

Example:
  sx profile create alice --as <identity> --display-name Alice --bio <cid> --avatar <cid>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := signer.signer()
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.CreateProfile(ctx, s, args[0], fields.displayName, fields.bioCID, fields.avatarCID)
			})
		},
	}
	signer.register(cmd)
	fields.register(cmd)
	return cmd
}

func newProfileUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		signer signerFlags
		fields profileFields
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace display name, bio and avatar",
		Long: `Replace the display name, bio and avatar of the signer's profile.
All three are written; the username is not touched (see "profile rename").`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := signer.signer()
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.UpdateProfile(ctx, s, fields.displayName, fields.bioCID, fields.avatarCID)
			})
		},
	}
	signer.register(cmd)
	fields.register(cmd)
	return cmd
}

func newProfileRenameCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:   "rename <new-username>",
		Short: "Move the profile to a new username",
		Long: `Claim a new username for the signer's profile and release the old one,
in one transition. The released name can be claimed by anyone afterwards.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := signer.signer()
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.UpdateUsername(ctx, s, args[0])
			})
		},
	}
	signer.register(cmd)
	return cmd
}
