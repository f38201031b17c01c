package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/homeserve/homeserve-api/internal/domain/order"
	"github.com/homeserve/homeserve-api/internal/domain/user"
	"github.com/homeserve/homeserve-api/internal/domain/wallet"
)

type fakeUserStore struct {
	users map[uuid.UUID]*user.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByReferralCode(ctx context.Context, code string) (*user.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserStore) SetReferredBy(ctx context.Context, userID, referrerID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	if u.ReferredBy.Valid {
		return user.ErrAlreadyReferred
	}
	u.ReferredBy = uuid.NullUUID{UUID: referrerID, Valid: true}
	return nil
}

func (f *fakeUserStore) CountReferred(ctx context.Context, referrerID uuid.UUID) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.ReferredBy.Valid && u.ReferredBy.UUID == referrerID {
			count++
		}
	}
	return count, nil
}

type fakeOrderStore struct {
	orders map[uuid.UUID]*order.Order
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) CountCompletedExcept(ctx context.Context, userID, excludeOrderID uuid.UUID) (int, error) {
	count := 0
	for _, o := range f.orders {
		if o.UserID == userID && o.Status == order.StatusCompleted && o.ID != excludeOrderID {
			count++
		}
	}
	return count, nil
}

type fakeLedger struct {
	balances map[uuid.UUID]int64
	entries  []*wallet.Transaction
	failNext error
}

func (f *fakeLedger) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType wallet.TransactionType, referenceID, description string) (*wallet.Wallet, *wallet.Transaction, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, nil, err
	}
	for _, e := range f.entries {
		if e.UserID == userID && e.Type == txType && e.ReferenceID.Valid && e.ReferenceID.String == referenceID {
			return &wallet.Wallet{UserID: userID, Balance: f.balances[userID]}, e, nil
		}
	}
	f.balances[userID] += amount
	entry := &wallet.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		ReferenceID: sql.NullString{String: referenceID, Valid: referenceID != ""},
		CreatedAt:   time.Now(),
	}
	f.entries = append(f.entries, entry)
	return &wallet.Wallet{UserID: userID, Balance: f.balances[userID]}, entry, nil
}

func (f *fakeLedger) HasReference(ctx context.Context, userID uuid.UUID, txType wallet.TransactionType, referenceID string) (bool, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.Type == txType && e.ReferenceID.Valid && e.ReferenceID.String == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) SumByType(ctx context.Context, userID uuid.UUID, txType wallet.TransactionType) (int64, error) {
	var sum int64
	for _, e := range f.entries {
		if e.UserID == userID && e.Type == txType {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (f *fakeLedger) countBonuses(referrerID uuid.UUID) int {
	count := 0
	for _, e := range f.entries {
		if e.UserID == referrerID && e.Type == wallet.TransactionTypeReferralBonus {
			count++
		}
	}
	return count
}

const bonusAmount = 50

func newFixture() (*Service, *fakeUserStore, *fakeOrderStore, *fakeLedger, *user.User, *user.User, *order.Order) {
	referrer := &user.User{ID: uuid.New(), Name: "Referrer", Email: "ref@test.com", ReferralCode: "REFCODE1"}
	buyer := &user.User{
		ID: uuid.New(), Name: "Buyer", Email: "buyer@test.com", ReferralCode: "BUYCODE1",
		ReferredBy: uuid.NullUUID{UUID: referrer.ID, Valid: true},
	}
	o := &order.Order{ID: uuid.New(), UserID: buyer.ID, ServiceID: uuid.New(), Status: order.StatusCompleted, Amount: 500, RemainingAmount: 500}

	users := &fakeUserStore{users: map[uuid.UUID]*user.User{referrer.ID: referrer, buyer.ID: buyer}}
	orders := &fakeOrderStore{orders: map[uuid.UUID]*order.Order{o.ID: o}}
	ledger := &fakeLedger{balances: map[uuid.UUID]int64{}}
	svc := NewService(users, orders, ledger, bonusAmount)
	return svc, users, orders, ledger, referrer, buyer, o
}

func TestEvaluateAndAwardFirstOrder(t *testing.T) {
	svc, _, _, ledger, referrer, buyer, o := newFixture()

	award, err := svc.EvaluateAndAward(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if award == nil {
		t.Fatal("expected an award")
	}
	if award.Wallet.Balance != bonusAmount {
		t.Fatalf("expected referrer balance %d, got %d", bonusAmount, award.Wallet.Balance)
	}
	if award.Transaction.Type != wallet.TransactionTypeReferralBonus {
		t.Fatalf("expected REFERRAL_BONUS, got %s", award.Transaction.Type)
	}
	if !strings.Contains(award.Transaction.Description, buyer.ID.String()) ||
		!strings.Contains(award.Transaction.Description, o.ID.String()) {
		t.Fatalf("description should reference buyer and order: %q", award.Transaction.Description)
	}
	if ledger.countBonuses(referrer.ID) != 1 {
		t.Fatalf("expected exactly one bonus entry, got %d", ledger.countBonuses(referrer.ID))
	}
}

func TestEvaluateAndAwardIsIdempotent(t *testing.T) {
	svc, _, _, ledger, referrer, _, o := newFixture()

	if _, err := svc.EvaluateAndAward(context.Background(), o.ID); err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}
	award, err := svc.EvaluateAndAward(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}
	if award != nil {
		t.Fatal("expected no award on redelivery")
	}
	if ledger.countBonuses(referrer.ID) != 1 {
		t.Fatalf("expected exactly one bonus entry, got %d", ledger.countBonuses(referrer.ID))
	}
	if ledger.balances[referrer.ID] != bonusAmount {
		t.Fatalf("expected balance %d, got %d", bonusAmount, ledger.balances[referrer.ID])
	}
}

func TestEvaluateAndAwardSkipsWithoutReferrer(t *testing.T) {
	svc, users, _, ledger, _, buyer, o := newFixture()
	users.users[buyer.ID].ReferredBy = uuid.NullUUID{}

	award, err := svc.EvaluateAndAward(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if award != nil {
		t.Fatal("expected no award without a referrer")
	}
	if len(ledger.entries) != 0 {
		t.Fatal("expected no ledger writes")
	}
}

func TestEvaluateAndAwardSkipsNonFirstOrder(t *testing.T) {
	svc, _, orders, ledger, _, buyer, o := newFixture()
	earlier := &order.Order{ID: uuid.New(), UserID: buyer.ID, ServiceID: uuid.New(), Status: order.StatusCompleted}
	orders.orders[earlier.ID] = earlier

	award, err := svc.EvaluateAndAward(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if award != nil {
		t.Fatal("expected no award for a second completed order")
	}
	if len(ledger.entries) != 0 {
		t.Fatal("expected no ledger writes")
	}
}

func TestEvaluateAndAwardPropagatesStorageFailure(t *testing.T) {
	svc, _, _, ledger, _, _, o := newFixture()
	ledger.failNext = fmt.Errorf("connection reset")

	_, err := svc.EvaluateAndAward(context.Background(), o.ID)
	if err == nil {
		t.Fatal("expected storage failure to surface")
	}
}

func TestApplyReferralCode(t *testing.T) {
	svc, users, _, _, referrer, _, _ := newFixture()
	newcomer := &user.User{ID: uuid.New(), Name: "New", Email: "new@test.com", ReferralCode: "NEWCODE1"}
	users.users[newcomer.ID] = newcomer

	if err := svc.Apply(context.Background(), newcomer.ID, referrer.ReferralCode); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !newcomer.ReferredBy.Valid || newcomer.ReferredBy.UUID != referrer.ID {
		t.Fatalf("expected referred_by to be set to referrer")
	}
}

func TestApplyRejections(t *testing.T) {
	svc, users, _, _, referrer, buyer, _ := newFixture()
	newcomer := &user.User{ID: uuid.New(), Name: "New", Email: "new@test.com", ReferralCode: "NEWCODE2"}
	users.users[newcomer.ID] = newcomer

	if err := svc.Apply(context.Background(), newcomer.ID, ""); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
	if err := svc.Apply(context.Background(), newcomer.ID, "NOPE1234"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if err := svc.Apply(context.Background(), newcomer.ID, newcomer.ReferralCode); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
	if newcomer.ReferredBy.Valid {
		t.Fatal("rejected attempts must not set referred_by")
	}

	// buyer already has a referrer
	if err := svc.Apply(context.Background(), buyer.ID, referrer.ReferralCode); !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
}

func TestGetInfo(t *testing.T) {
	svc, _, _, _, referrer, _, o := newFixture()
	if _, err := svc.EvaluateAndAward(context.Background(), o.ID); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	info, err := svc.GetInfo(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("get info failed: %v", err)
	}
	if info.ReferralCode != referrer.ReferralCode {
		t.Fatalf("unexpected code %q", info.ReferralCode)
	}
	if info.ReferredUsers != 1 {
		t.Fatalf("expected 1 referred user, got %d", info.ReferredUsers)
	}
	if info.TotalEarnings != bonusAmount {
		t.Fatalf("expected earnings %d, got %d", bonusAmount, info.TotalEarnings)
	}
}
