package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amodallal/fishing-backend/internal/model"
	"github.com/amodallal/fishing-backend/internal/repository"
)

// BoatHandler serves the captain's boat management endpoints.
type BoatHandler struct {
	Boats *repository.BoatRepo
}

func NewBoatHandler(b *repository.BoatRepo) *BoatHandler { return &BoatHandler{Boats: b} }

type boatReq struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type boatResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CaptainID uint64    `json:"captain_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toBoatResp(b model.Boat) boatResp {
	return boatResp{ID: b.ID, Name: b.Name, Capacity: b.Capacity, CaptainID: b.CaptainID, CreatedAt: b.CreatedAt}
}

func validateBoatReq(req *boatReq) string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name required"
	}
	if req.Capacity < 1 {
		return "capacity must be at least 1"
	}
	return ""
}

// Create registers a boat under the authenticated captain.
func (h *BoatHandler) Create(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req boatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateBoatReq(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b := model.Boat{Name: req.Name, Capacity: req.Capacity, CaptainID: captainID}
	if err := h.Boats.Create(ctx, &b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create boat failed"})
	}
	return c.JSON(http.StatusCreated, toBoatResp(b))
}

// ListAll returns every boat (public browsing).
func (h *BoatHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	boats, err := h.Boats.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list boats failed"})
	}
	out := make([]boatResp, 0, len(boats))
	for _, b := range boats {
		out = append(out, toBoatResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one boat by id (public browsing).
func (h *BoatHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Boats.GetByID(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toBoatResp(b))
}

// ListMine returns the captain's boats.
func (h *BoatHandler) ListMine(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	boats, err := h.Boats.ListByCaptain(ctx, captainID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list boats failed"})
	}
	out := make([]boatResp, 0, len(boats))
	for _, b := range boats {
		out = append(out, toBoatResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Update edits a boat the captain owns.
func (h *BoatHandler) Update(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req boatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateBoatReq(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Boats.GetByID(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	if b.CaptainID != captainID {
		// hide other captains' boats
		return jsonDomainError(c, model.ErrNotFound)
	}
	b.Name = req.Name
	b.Capacity = req.Capacity
	if err := h.Boats.Update(ctx, &b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update boat failed"})
	}
	return c.JSON(http.StatusOK, toBoatResp(b))
}

// Delete removes a boat the captain owns. Trips keep running with a
// null boat reference.
func (h *BoatHandler) Delete(c echo.Context) error {
	captainID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Boats.GetByID(ctx, id)
	if err != nil {
		return jsonDomainError(c, err)
	}
	if b.CaptainID != captainID {
		return jsonDomainError(c, model.ErrNotFound)
	}
	if err := h.Boats.Delete(ctx, id); err != nil {
		return jsonDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
