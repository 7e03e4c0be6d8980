package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAssignRequestValidate(t *testing.T) {
	valid := AssignRequest{ProjectID: 5, Code: "INV1", Quantity: 4, Description: "cable run"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	cases := map[string]AssignRequest{
		"no code":        {ProjectID: 5, Quantity: 1, Description: "x"},
		"no project":     {Code: "INV1", Quantity: 1, Description: "x"},
		"zero quantity":  {ProjectID: 5, Code: "INV1", Description: "x"},
		"negative qty":   {ProjectID: 5, Code: "INV1", Quantity: -3, Description: "x"},
		"no description": {ProjectID: 5, Code: "INV1", Quantity: 1, Description: "  "},
	}
	for name, req := range cases {
		if err := req.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: got %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestInsufficientQuantityErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("assign: %w", &InsufficientQuantityError{Code: "INV1", Requested: 10, Available: 6})
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatal("expected errors.Is to match ErrInsufficientQuantity")
	}
	var iq *InsufficientQuantityError
	if !errors.As(err, &iq) || iq.Available != 6 {
		t.Fatalf("expected available=6, got %+v", iq)
	}
}

func TestItemValidate(t *testing.T) {
	ok := Item{Code: "INV1", Name: "Cat6 cable", UnitPrice: decimal.RequireFromString("2.75"), TotalQuantity: 10}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
	bad := ok
	bad.UnitPrice = decimal.RequireFromString("-1")
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative price: got %v", err)
	}
	bad = ok
	bad.Code = ""
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing code: got %v", err)
	}
}

func TestAssignSummary(t *testing.T) {
	got := AssignSummary(Item{Code: "INV1", Name: "Cat6 cable"}, 4, "Office fit-out", 5, "cable run")
	want := "Assigned 4 x Cat6 cable (INV1) to project Office fit-out (#5): cable run"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
