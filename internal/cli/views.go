package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// eventView prints an event as "#seq Kind {payload}" in text format.
type eventView struct {
	ir.Event
}

func (v eventView) String() string {
	payload, err := ir.EncodePayload(v.Payload)
	if err != nil {
		return fmt.Sprintf("#%d %s <%v>", v.Seq, v.Kind, err)
	}
	return fmt.Sprintf("#%d %s %s", v.Seq, v.Kind, payload)
}

type eventList []eventView

func (l eventList) String() string {
	if len(l) == 0 {
		return "no events"
	}
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

type balanceView struct {
	Identity address.Address `json:"identity"`
	Lamports uint64          `json:"lamports"`
}

func (v balanceView) String() string {
	return fmt.Sprintf("%s %d", v.Identity, v.Lamports)
}

type derivedView struct {
	Namespace address.Namespace `json:"namespace"`
	Address   address.Address   `json:"address"`
	Bump      uint8             `json:"bump"`
}

func (v derivedView) String() string {
	return fmt.Sprintf("%s %s bump=%d", v.Namespace, v.Address, v.Bump)
}

type recordView struct {
	Address   address.Address   `json:"address"`
	Namespace address.Namespace `json:"namespace"`
	Deposit   uint64            `json:"deposit"`
	Record    ir.Record         `json:"record"`
}

func (v recordView) String() string {
	body, err := json.MarshalIndent(v.Record, "", "  ")
	if err != nil {
		body = []byte(err.Error())
	}
	return fmt.Sprintf("%s %s deposit=%d\n%s", v.Namespace, v.Address, v.Deposit, body)
}

type airdropView struct {
	Identity address.Address `json:"identity"`
	Amount   uint64          `json:"amount"`
	Lamports uint64          `json:"lamports"`
}

func (v airdropView) String() string {
	return fmt.Sprintf("%s +%d = %d", v.Identity, v.Amount, v.Lamports)
}
