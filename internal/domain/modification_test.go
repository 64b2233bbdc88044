package domain

import (
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestChangeSet_Validate(t *testing.T) {
	cases := []struct {
		name    string
		changes ChangeSet
		wantErr error
	}{
		{"empty", ChangeSet{}, ErrEmptyChangeSet},
		{"valid product", ChangeSet{Product: strptr("hawaiana")}, nil},
		{"invalid product", ChangeSet{Product: strptr("vegetarian")}, ErrInvalidProduct},
		{"invalid size", ChangeSet{Size: strptr("familiar")}, ErrInvalidSize},
		{"invalid payment", ChangeSet{PaymentMethod: strptr("cheque")}, ErrInvalidPaymentMethod},
		{"full valid", ChangeSet{
			ClientName:    strptr("Ana"),
			Product:       strptr("pepperoni"),
			Size:          strptr("personal"),
			Qty:           intptr(2),
			PaymentMethod: strptr("efectivo"),
		}, nil},
	}

	for _, tc := range cases {
		err := tc.changes.Validate()
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestChangeSet_ApplyIsPartial(t *testing.T) {
	order := Order{
		ClientName:    "Ana",
		Product:       "pepperoni",
		Size:          "personal",
		Qty:           1,
		PaymentMethod: "efectivo",
		State:         OrderStateConfirmed,
	}

	changes := ChangeSet{Qty: intptr(3), Size: strptr("grande")}
	changes.Apply(&order)

	if order.Qty != 3 || order.Size != "grande" {
		t.Fatalf("expected qty=3 size=grande, got qty=%d size=%s", order.Qty, order.Size)
	}
	if order.ClientName != "Ana" || order.Product != "pepperoni" || order.PaymentMethod != "efectivo" {
		t.Fatal("untouched fields must not change")
	}
	if order.State != OrderStateConfirmed {
		t.Fatal("state must not change")
	}
}

func TestChangeSet_Normalize(t *testing.T) {
	changes := ChangeSet{ClientName: strptr("  Ana "), Product: strptr("pepperoni\n")}
	normalized := changes.Normalize()

	if *normalized.ClientName != "Ana" || *normalized.Product != "pepperoni" {
		t.Fatalf("expected trimmed fields, got %q %q", *normalized.ClientName, *normalized.Product)
	}
}

func TestChangeSet_NormalizeDropsNonPositiveQty(t *testing.T) {
	for _, qty := range []int{0, -3} {
		changes := ChangeSet{Qty: intptr(qty), Size: strptr("grande")}
		normalized := changes.Normalize()

		if normalized.Qty != nil {
			t.Fatalf("qty %d: expected non-positive qty to be dropped, got %d", qty, *normalized.Qty)
		}
		if normalized.Size == nil || *normalized.Size != "grande" {
			t.Fatalf("qty %d: other fields must survive normalization", qty)
		}
	}

	// Корректное количество нормализация не трогает.
	normalized := ChangeSet{Qty: intptr(2)}.Normalize()
	if normalized.Qty == nil || *normalized.Qty != 2 {
		t.Fatal("positive qty must be kept")
	}
}

func TestChangeSet_FieldNames(t *testing.T) {
	changes := ChangeSet{Qty: intptr(2), Product: strptr("hawaiana")}

	names := changes.FieldNames()
	if len(names) != 2 || names[0] != "product" || names[1] != "qty" {
		t.Fatalf("expected [product qty], got %v", names)
	}

	if got := (ChangeSet{}).FieldNames(); len(got) != 0 {
		t.Fatalf("expected no field names for empty set, got %v", got)
	}
}

func TestNewModRequest_UniqueIDs(t *testing.T) {
	a := NewModRequest(1, false, ChangeSet{Qty: intptr(1)})
	b := NewModRequest(1, false, ChangeSet{Qty: intptr(1)})

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique non-empty request ids, got %q and %q", a.ID, b.ID)
	}
	if a.RequestedAt.IsZero() {
		t.Fatal("expected RequestedAt to be set")
	}
}

func TestByPriority(t *testing.T) {
	urgent := NewModRequest(9, true, ChangeSet{Qty: intptr(5)})
	normalSmall := NewModRequest(9, false, ChangeSet{Qty: intptr(2)})
	normalBig := NewModRequest(9, false, ChangeSet{Qty: intptr(4)})
	normalNoQty := NewModRequest(9, false, ChangeSet{Size: strptr("grande")})

	if !ByPriority(urgent, normalSmall) {
		t.Fatal("urgent request must win over non-urgent")
	}
	if ByPriority(normalSmall, urgent) {
		t.Fatal("non-urgent request must not win over urgent")
	}
	if !ByPriority(normalSmall, normalBig) {
		t.Fatal("smaller qty must win among equal urgency")
	}
	if !ByPriority(normalBig, normalNoQty) {
		t.Fatal("request without qty must sort last among equal urgency")
	}
	if ByPriority(normalSmall, normalSmall) {
		t.Fatal("comparator must be strict")
	}
}
