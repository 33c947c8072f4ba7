package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scratchbank/ledgerd/internal/domain"
	"github.com/scratchbank/ledgerd/internal/store"
)

// Engine applies exactly one command to the ledger store and reports success
// or a structured failure. It is stateless across calls; all account state
// lives in the store. Per-account locks are held across each
// read-modify-write so concurrent commands on the same account cannot lose
// updates.
type Engine struct {
	store store.Store
	locks *lockTable
	now   func() time.Time
}

func New(s store.Store) *Engine {
	return &Engine{store: s, locks: newLockTable(), now: time.Now}
}

// Execute runs one command. A nil return means the command succeeded. Every
// failure is a *domain.CommandError; no other error shape escapes.
func (e *Engine) Execute(ctx context.Context, cmd domain.Command) *domain.CommandError {
	switch cmd.Kind {
	case domain.KindDeposit:
		return e.deposit(ctx, cmd)
	case domain.KindWithdraw:
		return e.withdraw(ctx, cmd)
	case domain.KindXfer:
		return e.xfer(ctx, cmd)
	case domain.KindFreeze:
		return e.setFrozen(ctx, cmd, true)
	case domain.KindThaw:
		return e.setFrozen(ctx, cmd, false)
	}
	return domain.NewCommandError(cmd.Kind.String(), domain.CodeInvalidArgument, "unhandled command kind")
}

func (e *Engine) deposit(ctx context.Context, cmd domain.Command) *domain.CommandError {
	name := cmd.Kind.String()
	if cmd.AccountID == "" {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid accountId")
	}
	amount, ok := domain.AmountToCents(cmd.Amount)
	if !ok {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid amount")
	}

	unlock := e.locks.acquire(cmd.AccountID)
	defer unlock()

	exists, err := e.store.Exists(ctx, cmd.AccountID)
	if err != nil {
		return e.storeFailure(name, err)
	}
	if !exists {
		acct := domain.Account{
			AccountID:    cmd.AccountID,
			BalanceCents: amount,
			Frozen:       false,
			CreatedAt:    e.now(),
		}
		if err := e.store.Create(ctx, acct); err != nil {
			return e.storeFailure(name, err)
		}
		return nil
	}

	acct, err := e.store.Get(ctx, cmd.AccountID)
	if err != nil {
		return e.storeFailure(name, err)
	}
	if acct.Frozen {
		return domain.NewCommandError(name, domain.CodeFrozenAccount, "account %s is frozen", cmd.AccountID)
	}
	if err := e.store.UpdateBalance(ctx, cmd.AccountID, acct.BalanceCents+amount); err != nil {
		return e.storeFailure(name, err)
	}
	return nil
}

func (e *Engine) withdraw(ctx context.Context, cmd domain.Command) *domain.CommandError {
	name := cmd.Kind.String()
	if cmd.AccountID == "" {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid accountId")
	}
	amount, ok := domain.AmountToCents(cmd.Amount)
	if !ok {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid amount")
	}

	unlock := e.locks.acquire(cmd.AccountID)
	defer unlock()

	acct, err := e.store.Get(ctx, cmd.AccountID)
	if errors.Is(err, store.ErrAccountNotFound) {
		return domain.NewCommandError(name, domain.CodeAccountNotFound, "account %s does not exist", cmd.AccountID)
	}
	if err != nil {
		return e.storeFailure(name, err)
	}
	if acct.Frozen {
		return domain.NewCommandError(name, domain.CodeFrozenAccount, "account %s is frozen", cmd.AccountID)
	}
	if acct.BalanceCents < amount {
		return domain.NewCommandError(name, domain.CodeInsufficientBalance, "not enough balance")
	}
	if err := e.store.UpdateBalance(ctx, cmd.AccountID, acct.BalanceCents-amount); err != nil {
		return e.storeFailure(name, err)
	}
	return nil
}

// xfer debits the source and credits the destination. The source's frozen and
// balance checks are evaluated before the destination is looked at, and each
// leg's lookup failure is reported separately so the caller can tell which
// side failed. Both account locks are held for the whole cycle.
func (e *Engine) xfer(ctx context.Context, cmd domain.Command) *domain.CommandError {
	name := cmd.Kind.String()
	if cmd.FromID == "" {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid fromId")
	}
	if cmd.ToID == "" {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid toId")
	}
	if cmd.FromID == cmd.ToID {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "cannot transfer to self")
	}
	amount, ok := domain.AmountToCents(cmd.Amount)
	if !ok {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid amount")
	}

	unlock := e.locks.acquirePair(cmd.FromID, cmd.ToID)
	defer unlock()

	from, err := e.store.Get(ctx, cmd.FromID)
	if errors.Is(err, store.ErrAccountNotFound) {
		return domain.NewCommandError(name, domain.CodeAccountNotFound,
			"source account %s does not exist", cmd.FromID).WithLeg(domain.LegSource)
	}
	if err != nil {
		return e.storeFailure(name, err)
	}
	if from.Frozen {
		return domain.NewCommandError(name, domain.CodeFrozenAccount,
			"source account %s is frozen", cmd.FromID).WithLeg(domain.LegSource)
	}
	if from.BalanceCents < amount {
		return domain.NewCommandError(name, domain.CodeInsufficientBalance, "not enough balance")
	}

	to, err := e.store.Get(ctx, cmd.ToID)
	if errors.Is(err, store.ErrAccountNotFound) {
		return domain.NewCommandError(name, domain.CodeAccountNotFound,
			"destination account %s does not exist", cmd.ToID).WithLeg(domain.LegDestination)
	}
	if err != nil {
		return e.storeFailure(name, err)
	}
	if to.Frozen {
		return domain.NewCommandError(name, domain.CodeFrozenAccount,
			"destination account %s is frozen", cmd.ToID).WithLeg(domain.LegDestination)
	}

	if err := e.store.UpdateBalance(ctx, cmd.FromID, from.BalanceCents-amount); err != nil {
		return e.storeFailure(name, err)
	}
	if err := e.store.UpdateBalance(ctx, cmd.ToID, to.BalanceCents+amount); err != nil {
		// Undo the debit so the transfer is all-or-nothing for the caller.
		if undoErr := e.store.UpdateBalance(ctx, cmd.FromID, from.BalanceCents); undoErr != nil {
			slog.Error("xfer compensation failed", "fromId", cmd.FromID, "error", undoErr)
		}
		return e.storeFailure(name, err)
	}
	return nil
}

func (e *Engine) setFrozen(ctx context.Context, cmd domain.Command, frozen bool) *domain.CommandError {
	name := cmd.Kind.String()
	if cmd.AccountID == "" {
		return domain.NewCommandError(name, domain.CodeInvalidArgument, "invalid accountId")
	}

	unlock := e.locks.acquire(cmd.AccountID)
	defer unlock()

	// Freezing an already-frozen account (or thawing a thawed one) succeeds.
	err := e.store.SetFrozen(ctx, cmd.AccountID, frozen)
	if errors.Is(err, store.ErrAccountNotFound) {
		return domain.NewCommandError(name, domain.CodeAccountNotFound, "account %s does not exist", cmd.AccountID)
	}
	if err != nil {
		return e.storeFailure(name, err)
	}
	return nil
}

func (e *Engine) storeFailure(cmd string, err error) *domain.CommandError {
	slog.Error("ledger store call failed", "cmd", cmd, "error", err)
	return domain.NewCommandError(cmd, domain.CodeStoreFailure, "store failure: %v", err)
}
