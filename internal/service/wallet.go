package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/ledger"
	"ajosave/internal/maturity"
	"ajosave/internal/realtime"
	"ajosave/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Wallet serves balances and moves money between the wallet and plans.
type Wallet struct {
	base
}

// NewWallet creates a Wallet service.
func NewWallet(o Options) *Wallet {
	return &Wallet{base: newBase(o)}
}

// Snapshot folds the user's rows into wallet and plan balances. The second
// return value reports whether the snapshot came from the cache.
func (w *Wallet) Snapshot(ctx context.Context, userID uint) (domain.Wallet, bool, error) {
	var snap domain.Wallet
	if w.cache != nil {
		if found, err := w.cache.Get(ctx, balanceKey(userID), &snap); err == nil && found {
			return snap, true, nil
		}
	}

	var gen string
	if w.cache != nil {
		gen = w.generation(ctx, userID)
	}
	txs, err := w.repo.TransactionsForUsers(ctx, userID)
	if err != nil {
		return domain.Wallet{}, false, fmt.Errorf("loading transactions: %w", err)
	}
	plans, err := w.repo.PlanInstancesForUser(ctx, userID)
	if err != nil {
		return domain.Wallet{}, false, fmt.Errorf("loading plans: %w", err)
	}
	snap = buildWallet(userID, txs, plans, w.now())

	if w.cache != nil {
		w.fill(ctx, userID, balanceKey(userID), gen, snap)
	}
	return snap, false, nil
}

func buildWallet(userID uint, txs []domain.Transaction, plans []domain.PlanInstance, now time.Time) domain.Wallet {
	snap := domain.Wallet{
		UserID:  userID,
		Balance: ledger.Balance(txs, ledger.Wallet()),
		Plans:   make([]domain.PlanBalance, 0, len(plans)),
	}
	for _, p := range plans {
		snap.Plans = append(snap.Plans, planBalance(p, txs, now))
	}
	return snap
}

func planBalance(p domain.PlanInstance, txs []domain.Transaction, now time.Time) domain.PlanBalance {
	return domain.PlanBalance{
		Plan:     p,
		Balance:  ledger.Balance(txs, ledger.Plan(p.ID)),
		Maturity: maturity.Calculate(p.StartDateISO(), p.DurationWeeks, now),
	}
}

// HistoryQuery selects a page of a user's transactions.
type HistoryQuery struct {
	Kind     domain.TransactionKind
	Status   domain.TransactionStatus
	PlanID   *uint
	Page     int
	PageSize int
}

func (q HistoryQuery) cacheKey(userID uint) string {
	plan := ""
	if q.PlanID != nil {
		plan = fmt.Sprint(*q.PlanID)
	}
	return fmt.Sprintf("%skind=%s:status=%s:plan=%s:page=%d:size=%d", historyPrefix(userID), q.Kind, q.Status, plan, q.Page, q.PageSize)
}

// History pages through a user's transactions, newest first.
func (w *Wallet) History(ctx context.Context, userID uint, q HistoryQuery) (Paged[domain.Transaction], error) {
	key := q.cacheKey(userID)
	var cached Paged[domain.Transaction]
	if w.cache != nil {
		if found, err := w.cache.Get(ctx, key, &cached); err == nil && found {
			cached.Cached = true
			return cached, nil
		}
	}
	var gen string
	if w.cache != nil {
		gen = w.generation(ctx, userID)
	}
	filter := store.TxFilter{UserID: userID, Kind: q.Kind, Status: q.Status, PlanID: q.PlanID}
	txs, total, err := w.repo.ListTransactions(ctx, filter, PageOf(q.Page, q.PageSize))
	if err != nil {
		return Paged[domain.Transaction]{}, fmt.Errorf("listing transactions: %w", err)
	}
	out := newPaged(txs, q.Page, q.PageSize, total)
	if w.cache != nil {
		w.fill(ctx, userID, key, gen, out)
	}
	return out, nil
}

func newTx(userID uint, planID *uint, kind domain.TransactionKind, status domain.TransactionStatus, amount decimal.Decimal, desc string) *domain.Transaction {
	return &domain.Transaction{
		UserID:      userID,
		PlanID:      planID,
		Kind:        kind,
		Status:      status,
		Amount:      amount,
		Reference:   uuid.NewString(),
		Description: desc,
	}
}

// lockUser takes the user's row lock. It must be the first statement of a
// money-moving Atomic block: on MySQL the first plain read fixes the
// transaction's snapshot, so reads made after the lock see every write
// committed by the previous lock holder.
func lockUser(ctx context.Context, tx store.Repository, userID uint) error {
	_, err := tx.LockUser(ctx, userID)
	return err
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.Exponent() < -2 {
		return ErrInvalidAmount
	}
	return nil
}

// walletBalance folds the user's general wallet. Call it inside Atomic
// after lockUser, before inserting rows that spend from the wallet.
func walletBalance(ctx context.Context, tx store.Repository, userID uint) (decimal.Decimal, []domain.Transaction, error) {
	txs, err := tx.TransactionsForUsers(ctx, userID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return ledger.Balance(txs, ledger.Wallet()), txs, nil
}

// Deposit records a completed deposit net of the configured flat charge.
func (w *Wallet) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (domain.Transaction, error) {
	if err := validAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	settings, err := loadSettings(ctx, w.repo)
	if err != nil {
		return domain.Transaction{}, err
	}
	if settings.DepositCharge.GreaterThanOrEqual(amount) {
		return domain.Transaction{}, fmt.Errorf("%w: deposit must exceed the %s charge", ErrInvalidAmount, settings.DepositCharge)
	}
	t := newTx(userID, nil, domain.KindDeposit, domain.StatusCompleted, amount, "Wallet deposit")
	if settings.DepositCharge.IsPositive() {
		t.Charge = decimal.NewNullDecimal(settings.DepositCharge)
	}
	if err := w.repo.CreateTransactions(ctx, t); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "amount": amount}).WithError(err).Error("Deposit failed")
		return domain.Transaction{}, fmt.Errorf("recording deposit: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "reference": t.Reference}).Info("Deposit transaction")
	w.changed(ctx, "transactions", realtime.OpInsert, userID, t.ID)
	return *t, nil
}

// RequestWithdrawal records a pending withdrawal. Pending outflows already
// count against the balance, so the funds are reserved until an admin
// approves or rejects it.
func (w *Wallet) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (domain.Transaction, error) {
	if err := validAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	settings, err := loadSettings(ctx, w.repo)
	if err != nil {
		return domain.Transaction{}, err
	}
	charge := settings.WithdrawalCharge(amount)

	var t *domain.Transaction
	err = w.repo.Atomic(ctx, func(tx store.Repository) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		balance, _, err := walletBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance.LessThan(amount.Add(charge)) {
			return ErrInsufficientFunds
		}
		t = newTx(userID, nil, domain.KindWithdrawal, domain.StatusPending, amount, "Wallet withdrawal")
		if charge.IsPositive() {
			t.Charge = decimal.NewNullDecimal(charge)
		}
		return tx.CreateTransactions(ctx, t)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "charge": charge, "reference": t.Reference}).Info("Withdrawal requested")
	w.changed(ctx, "transactions", realtime.OpInsert, userID, t.ID)
	return *t, nil
}

func ownedPlan(ctx context.Context, repo store.Repository, userID, planID uint) (domain.PlanInstance, error) {
	p, err := repo.PlanInstanceByID(ctx, planID)
	if err != nil {
		return domain.PlanInstance{}, err
	}
	if p.UserID != userID {
		return domain.PlanInstance{}, ErrNotFound
	}
	return p, nil
}

// FundPlan moves amount from the wallet into a plan. The transfer is two
// completed rows: one on the wallet side and one on the plan side.
func (w *Wallet) FundPlan(ctx context.Context, userID, planID uint, amount decimal.Decimal) ([]domain.Transaction, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	var out, in *domain.Transaction
	err := w.repo.Atomic(ctx, func(tx store.Repository) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		p, err := ownedPlan(ctx, tx, userID, planID)
		if err != nil {
			return err
		}
		if p.Status == domain.PlanClosed {
			return ErrPlanClosed
		}
		balance, _, err := walletBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		out = newTx(userID, nil, domain.KindTransfer, domain.StatusCompleted, amount, fmt.Sprintf("Transfer to plan %d", planID))
		in = newTx(userID, &p.ID, domain.KindTransfer, domain.StatusCompleted, amount, "Transfer from wallet")
		in.Reference = out.Reference + "-in"
		return tx.CreateTransactions(ctx, out, in)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "plan_id": planID, "amount": amount}).Info("Plan funded")
	w.changed(ctx, "transactions", realtime.OpInsert, userID, in.ID)
	return []domain.Transaction{*out, *in}, nil
}

// WithdrawPlan pays a matured plan's whole balance back to the wallet and
// closes the plan.
func (w *Wallet) WithdrawPlan(ctx context.Context, userID, planID uint) ([]domain.Transaction, error) {
	var debit, credit *domain.Transaction
	err := w.repo.Atomic(ctx, func(tx store.Repository) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		p, err := ownedPlan(ctx, tx, userID, planID)
		if err != nil {
			return err
		}
		if p.Status == domain.PlanClosed {
			return ErrPlanClosed
		}
		m := maturity.Calculate(p.StartDateISO(), p.DurationWeeks, w.now())
		if p.Status != domain.PlanMatured && (m == nil || !m.IsMatured) {
			return ErrPlanNotMatured
		}
		txs, err := tx.TransactionsForUsers(ctx, userID)
		if err != nil {
			return err
		}
		balance := ledger.Balance(txs, ledger.Plan(p.ID))
		if !balance.IsPositive() {
			return ErrPlanEmpty
		}
		debit = newTx(userID, &p.ID, domain.KindWithdrawal, domain.StatusCompleted, balance, "Plan payout")
		credit = newTx(userID, nil, domain.KindPayout, domain.StatusCompleted, balance, fmt.Sprintf("Payout from plan %d", p.ID))
		credit.Reference = debit.Reference + "-out"
		if err := tx.CreateTransactions(ctx, debit, credit); err != nil {
			return err
		}
		if err := tx.SetPlanStatus(ctx, p.ID, p.Status, domain.PlanClosed); err != nil {
			return err
		}
		return notify(ctx, tx, userID, "Plan paid out", fmt.Sprintf("%s from your %s plan is now in your wallet.", balance.StringFixed(2), p.PlanType.Name))
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrPlanClosed
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "plan_id": planID, "amount": credit.Amount}).Info("Plan paid out")
	w.changed(ctx, "plan_instances", realtime.OpUpdate, userID, planID)
	return []domain.Transaction{*debit, *credit}, nil
}
