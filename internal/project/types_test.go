package project

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestProjectValidate(t *testing.T) {
	p := Project{
		ID:        5,
		Name:      "Office fit-out",
		StartDate: mustDate(t, "2024-01-10"),
		EndDate:   mustDate(t, "2024-03-01"),
		Status:    "active",
	}
	require.NoError(t, p.Validate())

	err := Project{}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "proj_id, proj_name, start_date, end_date, status")

	p.EndDate = mustDate(t, "2023-12-31")
	require.ErrorIs(t, p.Validate(), ErrInvalidInput)
}

func TestUpdateFieldsAndSummary(t *testing.T) {
	name := "Renamed"
	status := "on-hold"
	u := Update{Name: &name, Status: &status}

	assert.Equal(t, []string{"proj_name", "status"}, u.Fields())
	assert.Equal(t, "Project updated: proj_name, status", UpdatedSummary(u))
	require.NoError(t, u.Validate())

	require.True(t, errors.Is(Update{}.Validate(), ErrInvalidInput))

	blank := " "
	require.ErrorIs(t, Update{Name: &blank}.Validate(), ErrInvalidInput)

	p := Project{ID: 1, Name: "Old", Status: "active"}
	u.Apply(&p)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "on-hold", p.Status)
}

func TestDateJSON(t *testing.T) {
	var got struct {
		D Date `json:"d"`
		E Date `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-02-29","e":null}`), &got))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got.D.Time)
	assert.True(t, got.E.IsZero())

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-02-29","e":null}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"d":"29/02/2024"}`), &got))
}

func TestNewCostBreakdownTotals(t *testing.T) {
	cb := NewCostBreakdown([]CostLine{
		{CostID: 1, InventoryCode: "INV1", Quantity: 4, InventoryPrice: decimal.RequireFromString("12.50")},
		{CostID: 2, InventoryCode: "INV2", Quantity: 3, InventoryPrice: decimal.RequireFromString("0.10")},
	})
	require.Len(t, cb.Lines, 2)
	assert.True(t, cb.Lines[0].ItemTotalCost.Equal(decimal.RequireFromString("50")))
	assert.True(t, cb.Lines[1].ItemTotalCost.Equal(decimal.RequireFromString("0.3")))
	assert.True(t, cb.Total.Equal(decimal.RequireFromString("50.3")))

	empty := NewCostBreakdown(nil)
	assert.True(t, empty.Total.IsZero())
	assert.Empty(t, empty.Lines)
}
