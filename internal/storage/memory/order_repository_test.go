package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
	"github.com/vladislavdragonenkov/kitchenops/internal/storage/memory"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func newOrder() domain.Order {
	return domain.Order{
		ClientName:    "Ana",
		Product:       "pepperoni",
		Size:          "mediana",
		Qty:           1,
		PaymentMethod: "efectivo",
	}
}

func seedConfirmed(t *testing.T, repo domain.OrderRepository) domain.Order {
	t.Helper()

	created, err := repo.Create(newOrder())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	confirmed, err := repo.Confirm(created.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	return confirmed
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()

	created, err := repo.Create(newOrder())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	if created.State != domain.OrderStateDraft {
		t.Fatalf("expected draft state, got %s", created.State)
	}

	stored, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ClientName != "Ana" {
		t.Fatalf("expected client Ana, got %s", stored.ClientName)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()

	if _, err := repo.Get(42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListRecentNewestFirst(t *testing.T) {
	repo := memory.NewOrderRepository()

	for i := 0; i < 5; i++ {
		if _, err := repo.Create(newOrder()); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	orders, err := repo.ListRecent(3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i-1].ID <= orders[i].ID {
			t.Fatalf("expected newest first, got ids %d before %d", orders[i-1].ID, orders[i].ID)
		}
	}
}

func TestOrderRepository_ConfirmOnce(t *testing.T) {
	repo := memory.NewOrderRepository()

	created, err := repo.Create(newOrder())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	confirmed, err := repo.Confirm(created.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.State != domain.OrderStateConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatal("expected confirmed state with ConfirmedAt set")
	}

	if _, err := repo.Confirm(created.ID); !errors.Is(err, domain.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestOrderRepository_ApplyModification(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := seedConfirmed(t, repo)

	changes := domain.ChangeSet{Qty: intptr(3), Size: strptr("grande")}
	if err := repo.ApplyModification(order.ID, changes); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	updated, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Qty != 3 || updated.Size != "grande" {
		t.Fatalf("expected qty=3 size=grande, got qty=%d size=%s", updated.Qty, updated.Size)
	}
	if updated.Product != order.Product || updated.ClientName != order.ClientName {
		t.Fatal("unlisted fields must stay untouched")
	}
	if updated.State != domain.OrderStateConfirmed || updated.ConfirmedAt == nil {
		t.Fatal("state and ConfirmedAt must stay untouched")
	}
}

func TestOrderRepository_ApplyModificationIdempotent(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := seedConfirmed(t, repo)

	changes := domain.ChangeSet{Qty: intptr(2)}
	if err := repo.ApplyModification(order.ID, changes); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	// Повторное применение того же набора — не ошибка.
	if err := repo.ApplyModification(order.ID, changes); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	updated, _ := repo.Get(order.ID)
	if updated.Qty != 2 {
		t.Fatalf("expected qty=2, got %d", updated.Qty)
	}
}

func TestOrderRepository_ApplyModificationExpired(t *testing.T) {
	current := time.Now().UTC()
	repo := memory.NewOrderRepository(memory.WithNow(func() time.Time { return current }))
	order := seedConfirmed(t, repo)

	// Сдвигаем часы за границу окна.
	current = current.Add(domain.EditWindow + time.Second)

	err := repo.ApplyModification(order.ID, domain.ChangeSet{Qty: intptr(3)})
	if !errors.Is(err, domain.ErrEditWindowExpired) {
		t.Fatalf("expected ErrEditWindowExpired, got %v", err)
	}

	unchanged, _ := repo.Get(order.ID)
	if unchanged.Qty != order.Qty {
		t.Fatalf("expected qty unchanged, got %d", unchanged.Qty)
	}
}

func TestOrderRepository_ApplyModificationWithinWindowBoundary(t *testing.T) {
	current := time.Now().UTC()
	repo := memory.NewOrderRepository(memory.WithNow(func() time.Time { return current }))
	order := seedConfirmed(t, repo)

	// T+4:59 — ещё внутри окна.
	current = current.Add(domain.EditWindow - time.Second)

	if err := repo.ApplyModification(order.ID, domain.ChangeSet{Qty: intptr(3)}); err != nil {
		t.Fatalf("expected success inside window, got %v", err)
	}

	updated, _ := repo.Get(order.ID)
	if updated.Qty != 3 {
		t.Fatalf("expected qty=3, got %d", updated.Qty)
	}
}

func TestOrderRepository_ApplyModificationLockedStates(t *testing.T) {
	for _, state := range []domain.OrderState{
		domain.OrderStateCooking,
		domain.OrderStateDone,
		domain.OrderStateCancelled,
	} {
		repo := memory.NewOrderRepository()
		order := seedConfirmed(t, repo)

		setState(t, repo, order.ID, state)

		err := repo.ApplyModification(order.ID, domain.ChangeSet{Qty: intptr(3)})
		if !errors.Is(err, domain.ErrOrderLocked) {
			t.Fatalf("state %s: expected ErrOrderLocked, got %v", state, err)
		}
	}
}

func setState(t *testing.T, repo domain.OrderRepository, id int64, state domain.OrderState) {
	t.Helper()

	type stateSetter interface {
		SetState(id int64, state domain.OrderState) error
	}

	setter, ok := repo.(stateSetter)
	if !ok {
		t.Fatal("repository does not support SetState")
	}
	if err := setter.SetState(id, state); err != nil {
		t.Fatalf("set state: %v", err)
	}
}

func TestOrderRepository_ApplyModificationUnconfirmed(t *testing.T) {
	repo := memory.NewOrderRepository()

	created, err := repo.Create(newOrder())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = repo.ApplyModification(created.ID, domain.ChangeSet{Qty: intptr(3)})
	if !errors.Is(err, domain.ErrOrderNotConfirmed) {
		t.Fatalf("expected ErrOrderNotConfirmed, got %v", err)
	}
}

func TestOrderRepository_ApplyModificationNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()

	err := repo.ApplyModification(404, domain.ChangeSet{Qty: intptr(3)})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ApplyModificationEmptyChanges(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := seedConfirmed(t, repo)

	err := repo.ApplyModification(order.ID, domain.ChangeSet{})
	if !errors.Is(err, domain.ErrEmptyChangeSet) {
		t.Fatalf("expected ErrEmptyChangeSet, got %v", err)
	}
}

func TestOrderRepository_ContentionProbe(t *testing.T) {
	calls := 0
	repo := memory.NewOrderRepository(memory.WithContentionProbe(func() bool {
		calls++
		return calls <= 2
	}))
	order := seedConfirmed(t, repo)

	changes := domain.ChangeSet{Qty: intptr(3)}
	for i := 0; i < 2; i++ {
		if err := repo.ApplyModification(order.ID, changes); !errors.Is(err, domain.ErrStoreContention) {
			t.Fatalf("attempt %d: expected ErrStoreContention, got %v", i+1, err)
		}
	}
	if err := repo.ApplyModification(order.ID, changes); err != nil {
		t.Fatalf("expected success after probe released, got %v", err)
	}
}
