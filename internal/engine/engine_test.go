package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/scratchbank/ledgerd/internal/domain"
	"github.com/scratchbank/ledgerd/internal/store"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func deposit(id, amount string) func(t *testing.T) domain.Command {
	return func(t *testing.T) domain.Command {
		return domain.Command{Kind: domain.KindDeposit, AccountID: id, Amount: dec(t, amount)}
	}
}

func mustExec(t *testing.T, e *Engine, cmd domain.Command) {
	t.Helper()
	if err := e.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("%s failed: %v", cmd.Kind, err)
	}
}

func balanceCents(t *testing.T, st *store.Memory, id string) int64 {
	t.Helper()
	acct, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return acct.BalanceCents
}

func TestDepositCreatesAccount(t *testing.T) {
	st := store.NewMemory()
	e := New(st)

	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})

	acct, err := st.Get(context.Background(), "A")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if acct.BalanceCents != 10000 {
		t.Errorf("balance = %d cents, want 10000", acct.BalanceCents)
	}
	if acct.Frozen {
		t.Error("new account must not be frozen")
	}
	if acct.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
}

func TestDepositAddsToExistingBalance(t *testing.T) {
	st := store.NewMemory()
	e := New(st)

	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "0.50")})

	if got := balanceCents(t, st, "A"); got != 10050 {
		t.Errorf("balance = %d cents, want 10050", got)
	}
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  func(t *testing.T) domain.Command
	}{
		{"deposit empty accountId", deposit("", "10")},
		{"deposit negative amount", deposit("A", "-1")},
		{"deposit sub-cent amount", deposit("A", "1.005")},
		{
			"withdraw negative amount",
			func(t *testing.T) domain.Command {
				return domain.Command{Kind: domain.KindWithdraw, AccountID: "A", Amount: dec(t, "-5")}
			},
		},
		{
			"xfer empty fromId",
			func(t *testing.T) domain.Command {
				return domain.Command{Kind: domain.KindXfer, ToID: "B", Amount: dec(t, "5")}
			},
		},
		{
			"xfer empty toId",
			func(t *testing.T) domain.Command {
				return domain.Command{Kind: domain.KindXfer, FromID: "A", Amount: dec(t, "5")}
			},
		},
		{
			"xfer to self",
			func(t *testing.T) domain.Command {
				return domain.Command{Kind: domain.KindXfer, FromID: "A", ToID: "A", Amount: dec(t, "5")}
			},
		},
		{
			"freeze empty accountId",
			func(t *testing.T) domain.Command {
				return domain.Command{Kind: domain.KindFreeze}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			e := New(st)
			mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})

			err := e.Execute(context.Background(), tt.cmd(t))
			if err == nil {
				t.Fatal("expected failure")
			}
			if err.Code != domain.CodeInvalidArgument {
				t.Errorf("code = %s, want %s", err.Code, domain.CodeInvalidArgument)
			}
		})
	}
}

func TestWithdrawRoundTrip(t *testing.T) {
	st := store.NewMemory()
	e := New(st)

	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})
	mustExec(t, e, domain.Command{Kind: domain.KindWithdraw, AccountID: "A", Amount: dec(t, "37.25")})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "37.25")})

	if got := balanceCents(t, st, "A"); got != 10000 {
		t.Errorf("balance = %d cents, want 10000 after round trip", got)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})

	err := e.Execute(context.Background(), domain.Command{
		Kind: domain.KindWithdraw, AccountID: "A", Amount: dec(t, "150"),
	})
	if err == nil || err.Code != domain.CodeInsufficientBalance {
		t.Fatalf("err = %v, want %s", err, domain.CodeInsufficientBalance)
	}
	if got := balanceCents(t, st, "A"); got != 10000 {
		t.Errorf("balance changed to %d on failed withdraw", got)
	}
}

func TestWithdrawMissingAccount(t *testing.T) {
	e := New(store.NewMemory())

	err := e.Execute(context.Background(), domain.Command{
		Kind: domain.KindWithdraw, AccountID: "ghost", Amount: dec(t, "1"),
	})
	if err == nil || err.Code != domain.CodeAccountNotFound {
		t.Fatalf("err = %v, want %s", err, domain.CodeAccountNotFound)
	}
}

func TestXferMovesMoney(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "200")})

	mustExec(t, e, domain.Command{Kind: domain.KindXfer, FromID: "A", ToID: "B", Amount: dec(t, "50")})

	if got := balanceCents(t, st, "A"); got != 5000 {
		t.Errorf("A = %d cents, want 5000", got)
	}
	if got := balanceCents(t, st, "B"); got != 25000 {
		t.Errorf("B = %d cents, want 25000", got)
	}
}

func TestXferLegErrors(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantCode domain.ErrorCode
		wantLeg  domain.Leg
	}{
		{"missing source", "ghost", "B", domain.CodeAccountNotFound, domain.LegSource},
		{"missing destination", "A", "ghost", domain.CodeAccountNotFound, domain.LegDestination},
		{"frozen source", "ice", "B", domain.CodeFrozenAccount, domain.LegSource},
		{"frozen destination", "A", "ice", domain.CodeFrozenAccount, domain.LegDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			e := New(st)
			mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})
			mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "200")})
			mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "ice", Amount: dec(t, "50")})
			mustExec(t, e, domain.Command{Kind: domain.KindFreeze, AccountID: "ice"})

			err := e.Execute(context.Background(), domain.Command{
				Kind: domain.KindXfer, FromID: tt.from, ToID: tt.to, Amount: dec(t, "10"),
			})
			if err == nil {
				t.Fatal("expected failure")
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if err.Leg != tt.wantLeg {
				t.Errorf("leg = %q, want %q", err.Leg, tt.wantLeg)
			}

			// No leg of a failed transfer may move money.
			if got := balanceCents(t, st, "A"); got != 10000 {
				t.Errorf("A = %d after failed xfer, want 10000", got)
			}
			if got := balanceCents(t, st, "B"); got != 20000 {
				t.Errorf("B = %d after failed xfer, want 20000", got)
			}
		})
	}
}

func TestXferInsufficientBalanceChecksSourceFirst(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "10")})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "ice", Amount: dec(t, "50")})
	mustExec(t, e, domain.Command{Kind: domain.KindFreeze, AccountID: "ice"})

	// Source balance check comes before the destination's frozen check.
	err := e.Execute(context.Background(), domain.Command{
		Kind: domain.KindXfer, FromID: "A", ToID: "ice", Amount: dec(t, "500"),
	})
	if err == nil || err.Code != domain.CodeInsufficientBalance {
		t.Fatalf("err = %v, want %s", err, domain.CodeInsufficientBalance)
	}
}

func TestFreezeBlocksAndThawRestores(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	ctx := context.Background()
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "200")})
	mustExec(t, e, domain.Command{Kind: domain.KindFreeze, AccountID: "B"})

	if err := e.Execute(ctx, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "1")}); err == nil || err.Code != domain.CodeFrozenAccount {
		t.Fatalf("deposit on frozen account: err = %v, want %s", err, domain.CodeFrozenAccount)
	}
	if err := e.Execute(ctx, domain.Command{Kind: domain.KindWithdraw, AccountID: "B", Amount: dec(t, "1")}); err == nil || err.Code != domain.CodeFrozenAccount {
		t.Fatalf("withdraw on frozen account: err = %v, want %s", err, domain.CodeFrozenAccount)
	}

	mustExec(t, e, domain.Command{Kind: domain.KindThaw, AccountID: "B"})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "1")})

	if got := balanceCents(t, st, "B"); got != 20100 {
		t.Errorf("balance = %d cents after thaw+deposit, want 20100", got)
	}
}

func TestFreezeThawIdempotent(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "10")})

	mustExec(t, e, domain.Command{Kind: domain.KindFreeze, AccountID: "A"})
	mustExec(t, e, domain.Command{Kind: domain.KindFreeze, AccountID: "A"})
	mustExec(t, e, domain.Command{Kind: domain.KindThaw, AccountID: "A"})
	mustExec(t, e, domain.Command{Kind: domain.KindThaw, AccountID: "A"})

	acct, _ := st.Get(context.Background(), "A")
	if acct.Frozen {
		t.Error("account still frozen after thaw")
	}
}

func TestFreezeMissingAccount(t *testing.T) {
	e := New(store.NewMemory())
	err := e.Execute(context.Background(), domain.Command{Kind: domain.KindFreeze, AccountID: "ghost"})
	if err == nil || err.Code != domain.CodeAccountNotFound {
		t.Fatalf("err = %v, want %s", err, domain.CodeAccountNotFound)
	}
}

// Concurrent withdrawals against one account must not lose updates: the
// per-account lock serializes each read-modify-write cycle.
func TestConcurrentWithdrawalsNoLostUpdates(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "50")})

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := e.Execute(context.Background(), domain.Command{
				Kind: domain.KindWithdraw, AccountID: "A", Amount: decimal.New(100, -2),
			})
			if err != nil {
				t.Errorf("withdraw failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := balanceCents(t, st, "A"); got != 0 {
		t.Errorf("balance = %d cents after %d withdrawals, want 0", got, workers)
	}
}

// Opposite-direction transfers take both account locks in id order, so this
// must complete without deadlock and conserve the combined balance.
func TestConcurrentOppositeTransfers(t *testing.T) {
	st := store.NewMemory()
	e := New(st)
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "A", Amount: dec(t, "100")})
	mustExec(t, e, domain.Command{Kind: domain.KindDeposit, AccountID: "B", Amount: dec(t, "100")})

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(rounds * 2)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			e.Execute(context.Background(), domain.Command{
				Kind: domain.KindXfer, FromID: "A", ToID: "B", Amount: decimal.New(100, -2),
			})
		}()
		go func() {
			defer wg.Done()
			e.Execute(context.Background(), domain.Command{
				Kind: domain.KindXfer, FromID: "B", ToID: "A", Amount: decimal.New(100, -2),
			})
		}()
	}
	wg.Wait()

	total := balanceCents(t, st, "A") + balanceCents(t, st, "B")
	if total != 20000 {
		t.Errorf("combined balance = %d cents, want 20000", total)
	}
}
