package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"fbms.app/internal/audit"
	"fbms.app/internal/auth"
	"fbms.app/internal/inventory"
	"fbms.app/internal/obs"
	"fbms.app/internal/stream"
)

type assignRequest struct {
	ProjectID         int64  `json:"proj_id"`
	RequestedQuantity int64  `json:"requested_quantity"`
	Description       string `json:"description"`
}

type assignResponse struct {
	Message           string `json:"message"`
	InventoryCode     string `json:"inventory_code"`
	ProjectID         int64  `json:"proj_id"`
	AvailableQuantity int64  `json:"available_quantity"`
}

func (a *API) handleAssign(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])

	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProjectID <= 0 || req.RequestedQuantity <= 0 || strings.TrimSpace(req.Description) == "" {
		writeError(w, r, http.StatusBadRequest, "proj_id, requested_quantity and description are required")
		return
	}

	res, err := a.inventory.Assign(r.Context(), inventory.AssignRequest{
		ProjectID:   req.ProjectID,
		Code:        code,
		Quantity:    req.RequestedQuantity,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		obs.ObserveAssignment(assignResult(err), 0)
		handleInventoryError(w, r, err)
		return
	}
	obs.ObserveAssignment("ok", res.Quantity)

	if a.stream != nil {
		evt := stream.AssignmentEvent{
			InventoryCode: res.InventoryCode,
			ProjectID:     res.ProjectID,
			Quantity:      res.Quantity,
			Remaining:     res.Remaining,
			Timestamp:     res.AssignedAt,
		}
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			evt.AccountID = id.AccountID
		}
		a.stream.Publish(evt)
	}

	_ = audit.LogEvent(r.Context(), audit.EventInventoryAssign, map[string]any{
		"inventory_code": res.InventoryCode,
		"proj_id":        res.ProjectID,
		"quantity":       res.Quantity,
		"remaining":      res.Remaining,
		"cost_id":        res.CostEntryID,
	})

	writeJSON(w, http.StatusOK, assignResponse{
		Message:           fmt.Sprintf("Assigned %d units of %s to project %d", res.Quantity, res.InventoryCode, res.ProjectID),
		InventoryCode:     res.InventoryCode,
		ProjectID:         res.ProjectID,
		AvailableQuantity: res.Remaining,
	})
}

func assignResult(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientQuantity):
		return "insufficient"
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, inventory.ErrProjectNotFound):
		return "not_found"
	case errors.Is(err, inventory.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.inventory.ListItems(r.Context())
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	it, err := a.inventory.GetItem(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (a *API) handleAddInventory(w http.ResponseWriter, r *http.Request) {
	var it inventory.Item
	if err := decodeJSON(w, r, &it); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.inventory.AddItem(r.Context(), it)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventInventoryAdd, map[string]any{
		"inventory_code": created.Code,
		"total_quantity": created.TotalQuantity,
	})
	w.Header().Set("Location", "/inventory/"+created.Code)
	writeJSON(w, http.StatusCreated, created)
}

func handleInventoryError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *inventory.InsufficientQuantityError
	switch {
	case errors.As(err, &insufficient):
		writeErrorWith(w, r, http.StatusBadRequest, "Insufficient quantity", map[string]any{
			"available_quantity": insufficient.Available,
		})
	case errors.Is(err, inventory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, errorDetail(err, inventory.ErrInvalidInput, "Invalid input"))
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Inventory item not found")
	case errors.Is(err, inventory.ErrProjectNotFound):
		writeError(w, r, http.StatusNotFound, "Project not found")
	case errors.Is(err, inventory.ErrConflict):
		writeError(w, r, http.StatusConflict, "Inventory code already exists")
	default:
		obs.Logger().Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("inventory operation failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
