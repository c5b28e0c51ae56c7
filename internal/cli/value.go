package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/ir"
)

// NewTipCommand creates the tip command.
func NewTipCommand(rootOpts *RootOptions) *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:   "tip <to> <tip-id> <lamports>",
		Short: "Send lamports and record a tip receipt",
		Long: `Move lamports from the signer to another identity and record a tip
receipt under tip-id. The transfer and the receipt land together or not at
all. tip-id must be unique per sender.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			s, to, err := signerAndIdentity(&signer, args[0])
			if err != nil {
				return out.Reject(err)
			}
			tipID, err := parseU64("tip id", args[1])
			if err != nil {
				return out.Reject(err)
			}
			amount, err := parseU64("amount", args[2])
			if err != nil {
				return out.Reject(err)
			}
			return transition(rootOpts, cmd, func(ctx context.Context, e *engine.Engine) (ir.Event, error) {
				return e.Tip(ctx, s, to, tipID, amount)
			})
		},
	}
	signer.register(cmd)
	return cmd
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <identity> <lamports>",
		Short: "Mint lamports to an identity (local ledgers only)",
		Long: `Mint lamports to an identity so it can pay deposits and tips. This is
local tooling; it emits no event.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			id, err := parseIdentity("identity", args[0])
			if err != nil {
				return out.Reject(err)
			}
			amount, err := parseU64("amount", args[1])
			if err != nil {
				return out.Reject(err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) (any, error) {
				if err := s.engine.Airdrop(ctx, id, amount); err != nil {
					return nil, err
				}
				lamports, err := s.engine.Balance(ctx, id)
				if err != nil {
					return nil, err
				}
				return airdropView{Identity: id, Amount: amount, Lamports: lamports}, nil
			})
		},
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <identity>",
		Short:         "Print an identity's lamports",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity("identity", args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) (any, error) {
				lamports, err := s.engine.Balance(ctx, id)
				if err != nil {
					return nil, err
				}
				return balanceView{Identity: id, Lamports: lamports}, nil
			})
		},
	}
}
