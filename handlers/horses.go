package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/chartapi/chart"
	"github.com/padraicbc/chartapi/models"
	"github.com/padraicbc/chartapi/registry"
)

// SearchHorses searches registry entries by name fragment. Feeds the
// identity selector on the review surface.
func (h *Handler) SearchHorses(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q param not set")
	}

	horses, err := h.reg.Store().SearchHorses(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, horses)
}

type horseRequest struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Country  string `json:"country"`
	Historic bool   `json:"historic"`
}

// SaveHorse creates a registry entry or updates owner/country/historic on
// an existing one.
func (h *Handler) SaveHorse(c echo.Context) error {
	var req horseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	horse, err := h.reg.AddOrUpdate(c.Request().Context(), models.Horse{
		Name:     req.Name,
		Owner:    strings.TrimSpace(req.Owner),
		Country:  strings.ToUpper(strings.TrimSpace(req.Country)),
		Historic: req.Historic,
	})
	if err != nil {
		return registryError(err)
	}
	return c.JSON(http.StatusOK, horse)
}

type mergeRequest struct {
	Primary string   `json:"primary"`
	Names   []string `json:"names"`
}

// MergeHorses folds the named entries into the primary.
func (h *Handler) MergeHorses(c echo.Context) error {
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Primary == "" || len(req.Names) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "primary and names are required")
	}

	horse, err := h.reg.Merge(c.Request().Context(), req.Primary, req.Names)
	if err != nil {
		return registryError(err)
	}
	return c.JSON(http.StatusOK, horse)
}

type renameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// RenameHorse changes a horse's canonical name, keeping the old spelling
// as an alias.
func (h *Handler) RenameHorse(c echo.Context) error {
	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Old == "" || req.New == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "old and new names are required")
	}

	horse, err := h.reg.Rename(c.Request().Context(), req.Old, req.New)
	if err != nil {
		return registryError(err)
	}
	return c.JSON(http.StatusOK, horse)
}

type unmergeRequest struct {
	Primary string `json:"primary"`
	Alias   string `json:"alias"`
}

// UnmergeHorse splits an alias back out as an independent entry.
func (h *Handler) UnmergeHorse(c echo.Context) error {
	var req unmergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Primary == "" || req.Alias == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "primary and alias are required")
	}

	horse, err := h.reg.Unmerge(c.Request().Context(), req.Primary, req.Alias)
	if err != nil {
		return registryError(err)
	}
	return c.JSON(http.StatusOK, horse)
}

// GetHistory returns a horse's full history, date-descending.
func (h *Handler) GetHistory(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid horse id")
	}

	entries, err := h.reg.Store().History(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

type noteRequest struct {
	Kind    string `json:"kind"`
	Date    string `json:"date"`
	Track   string `json:"track"`
	Comment string `json:"comment"`
}

// AddHistoryNote appends a training or free-text note entry to a horse's
// history. Race entries only arrive through chart commits.
func (h *Handler) AddHistoryNote(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid horse id")
	}

	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Kind != models.EntryTraining && req.Kind != models.EntryNote {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be training or note")
	}
	if req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	ctx := c.Request().Context()
	store := h.reg.Store()
	if _, err := store.GetHorse(ctx, id); err != nil {
		return registryError(err)
	}

	entries, err := store.History(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, e := range entries {
		if e.Date == req.Date && e.Track == req.Track {
			return echo.NewHTTPError(http.StatusConflict, registry.ErrDuplicateEntry.Error())
		}
	}

	entries = append(entries, models.HistoryEntry{
		HorseID: id,
		Kind:    req.Kind,
		Date:    req.Date,
		Track:   req.Track,
		Surface: chart.DefaultSurface,
		Comment: req.Comment,
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	if err := store.ReplaceHistory(ctx, id, entries); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusCreated)
}

// registryError maps registry sentinel errors onto HTTP statuses.
func registryError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrAliasClaimed), errors.Is(err, registry.ErrNameTaken),
		errors.Is(err, registry.ErrDuplicateEntry), errors.Is(err, registry.ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
