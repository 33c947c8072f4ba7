package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account represents one ledger account. Balances are held in cents to keep
// arithmetic exact; the API layer renders them back as decimal amounts.
type Account struct {
	AccountID    string    `json:"accountId"`
	BalanceCents int64     `json:"balanceCents"`
	Frozen       bool      `json:"frozen"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AccountView is the lookup response shape for one account.
type AccountView struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Frozen    bool            `json:"frozen"`
}

// View renders the account for the lookup endpoint.
func (a Account) View() AccountView {
	return AccountView{
		AccountID: a.AccountID,
		Balance:   decimal.New(a.BalanceCents, -2),
		Frozen:    a.Frozen,
	}
}

// CommandKind is the closed set of ledger commands.
type CommandKind int

const (
	KindDeposit CommandKind = iota
	KindWithdraw
	KindXfer
	KindFreeze
	KindThaw
)

const (
	wireDeposit  = "DEPOSIT"
	wireWithdraw = "WITHDRAW"
	wireXfer     = "XFER"
	wireFreeze   = "FREEZE"
	wireThaw     = "THAW"
)

func (k CommandKind) String() string {
	switch k {
	case KindDeposit:
		return wireDeposit
	case KindWithdraw:
		return wireWithdraw
	case KindXfer:
		return wireXfer
	case KindFreeze:
		return wireFreeze
	case KindThaw:
		return wireThaw
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// ParseKind maps a wire command name to its kind.
func ParseKind(s string) (CommandKind, error) {
	switch s {
	case wireDeposit:
		return KindDeposit, nil
	case wireWithdraw:
		return KindWithdraw, nil
	case wireXfer:
		return KindXfer, nil
	case wireFreeze:
		return KindFreeze, nil
	case wireThaw:
		return KindThaw, nil
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

// Command is one decoded unit of work for the transaction engine.
// AccountID is set for deposit/withdraw/freeze/thaw; FromID and ToID for xfer.
type Command struct {
	Kind      CommandKind
	AccountID string
	FromID    string
	ToID      string
	Amount    decimal.Decimal
}
