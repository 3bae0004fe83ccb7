package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/chartapi/ingest"
)

// ParseCharts accepts a batch of extracted chart documents and returns
// the ordered review queue. Nothing is committed here.
func (h *Handler) ParseCharts(c echo.Context) error {
	var docs []ingest.Document
	if err := c.Bind(&docs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(docs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no documents submitted")
	}
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "document has no text: "+d.FileName)
		}
		docs[i].FileName = strings.TrimSpace(d.FileName)
	}

	res, err := h.orch.ParseBatch(c.Request().Context(), docs)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// GetBatch returns a previously parsed review queue by batch id.
func (h *Handler) GetBatch(c echo.Context) error {
	res, ok := h.orch.Batch(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "batch not found or expired")
	}
	return c.JSON(http.StatusOK, res)
}

// CommitCharts saves operator-confirmed records into horse histories.
// Duplicate and per-record failures are reported in the response, never
// as a batch failure.
func (h *Handler) CommitCharts(c echo.Context) error {
	var recs []ingest.ConfirmRecord
	if err := c.Bind(&recs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(recs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no records submitted")
	}
	for _, r := range recs {
		if r.HorseID <= 0 && strings.TrimSpace(r.HorseName) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "record needs horseID or horseName")
		}
		if r.Date == "" || r.Track == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "record needs date and track")
		}
	}

	res, err := h.orch.Commit(c.Request().Context(), recs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
