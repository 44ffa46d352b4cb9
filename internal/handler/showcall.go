package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/showcall"
)

// Call handles POST /v1/runsheets/:id/call, the live show-call
// endpoint.  The body names an action and optionally a cue; without a
// cue_id the action applies at the runsheet level (pause, resume,
// note).  Validation against persisted state, the audit append and the
// broadcast all happen inside the coordinator.
func (h *RunsheetHandler) Call(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	var body struct {
		CueID  *uint64 `json:"cue_id"`
		Action string  `json:"action"`
		Notes  string  `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	action, ok := showcall.ParseAction(body.Action)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}
	if body.CueID != nil && *body.CueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cue id"})
	}
	res, err := h.Coord.Call(c.Request().Context(), coordinator.CallRequest{
		RunsheetID: id,
		CueID:      body.CueID,
		Action:     action,
		Notes:      body.Notes,
		Actor:      actor,
	})
	if err != nil {
		return callError(c, err)
	}
	resp := echo.Map{
		"runsheet": runsheetJSON(res.Runsheet),
		"entry":    logEntryJSON(res.Entry),
	}
	if res.Cue != nil {
		resp["cue"] = cueJSON(res.Cue)
	}
	return c.JSON(http.StatusOK, resp)
}
