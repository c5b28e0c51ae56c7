package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/engine"
)

func argumentError(what, value string, err error) error {
	return WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", what, value), err)
}

func parseIdentity(what, s string) (address.Address, error) {
	a, err := address.Parse(s)
	if err != nil {
		return address.Address{}, argumentError(what, s, err)
	}
	return a, nil
}

func parseU64(what, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, argumentError(what, s, err)
	}
	return v, nil
}

// signerFlags are the identity flags of every ledger-changing command.
type signerFlags struct {
	authority   string
	payer       string
	beneficiary string
}

func (f *signerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.authority, "as", "", "identity the transition acts for (base58, required)")
	cmd.Flags().StringVar(&f.payer, "payer", "", "identity funding new records' deposits (default: --as)")
	cmd.Flags().StringVar(&f.beneficiary, "beneficiary", "", "identity refunded when records close (default: --as)")
	_ = cmd.MarkFlagRequired("as")
}

func (f *signerFlags) signer() (engine.Signer, error) {
	var s engine.Signer
	var err error
	if s.Authority, err = parseIdentity("--as", f.authority); err != nil {
		return s, err
	}
	if f.payer != "" {
		if s.Payer, err = parseIdentity("--payer", f.payer); err != nil {
			return s, err
		}
	}
	if f.beneficiary != "" {
		if s.Beneficiary, err = parseIdentity("--beneficiary", f.beneficiary); err != nil {
			return s, err
		}
	}
	return s, nil
}

func signerAndIdentity(f *signerFlags, identity string) (engine.Signer, address.Address, error) {
	s, err := f.signer()
	if err != nil {
		return s, address.Address{}, err
	}
	id, err := parseIdentity("identity", identity)
	return s, id, err
}

func signerAndPost(f *signerFlags, author, postID string) (engine.Signer, address.Address, uint64, error) {
	s, a, err := signerAndIdentity(f, author)
	if err != nil {
		return s, a, 0, err
	}
	id, err := parseU64("post id", postID)
	return s, a, id, err
}
