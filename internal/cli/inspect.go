package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <namespace> <key>...",
		Short: "Print the address of a record key",
		Long: `Print the address a record with the given key lives at. Needs no store.

Keys per namespace:
  profile  <authority>
  username <username>
  follow   <follower> <following>
  post     <author> <post-id>
  tip      <from> <tip-id>
  like     <liker> <post-author> <post-id>
  comment  <author> <post-id> <comment-id>
  topic    <topic> <author> <post-id>`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return out.Reject(err)
			}
			program, err := cfg.Program()
			if err != nil {
				return out.Reject(WrapExitError(ExitCommandError, "load config", err))
			}
			d, err := deriveKey(address.NewDeriver(program), address.Namespace(args[0]), args[1:])
			if err != nil {
				return out.Reject(err)
			}
			return out.Success(derivedView{Namespace: d.Namespace, Address: d.Address, Bump: d.Bump})
		},
	}
}

func deriveKey(d *address.Deriver, ns address.Namespace, keys []string) (address.Derived, error) {
	if _, ok := address.KeyArity(ns); !ok {
		return address.Derived{}, argumentError("namespace", string(ns),
			fmt.Errorf("want one of %s", namespaceList()))
	}
	derived, err := d.Key(ns, keys...)
	if err != nil {
		return address.Derived{}, WrapExitError(ExitCommandError, "derive "+string(ns), err)
	}
	return derived, nil
}

func namespaceList() string {
	names := make([]string, len(address.Namespaces))
	for i, ns := range address.Namespaces {
		names[i] = string(ns)
	}
	return strings.Join(names, ", ")
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <address>",
		Short:         "Print the live record at an address",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseIdentity("address", args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Reject(err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) (any, error) {
				rec, ok, err := s.engine.Lookup(ctx, addr)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, ir.NewNotFoundError(addr)
				}
				deposit, _, err := s.ledger.Deposit(ctx, addr)
				if err != nil {
					return nil, err
				}
				return recordView{Address: addr, Namespace: rec.Namespace(), Deposit: deposit, Record: rec}, nil
			})
		},
	}
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the event log",
		Long: `Print events in seq order, starting after --after.

Examples:
  sx events
  sx events --after 10 --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) (any, error) {
				evs, err := s.ledger.ReadEvents(ctx, after, limit)
				if err != nil {
					return nil, err
				}
				views := make(eventList, len(evs))
				for i, ev := range evs {
					views[i] = eventView{ev}
				}
				return views, nil
			})
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "print events with seq greater than this")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events to print (0 for all)")
	return cmd
}
