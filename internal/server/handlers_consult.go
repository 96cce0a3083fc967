package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medassist/apps/backend/internal/consult"
)

func (a *App) chat(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	form, err := a.readConsultForm(c)
	if err != nil {
		a.writeConsultError(c, sessionID, err)
		return
	}

	outcome, err := a.consult.Chat(c.Request.Context(), consult.ChatRequest{
		SessionID: sessionID,
		Message:   form.Message,
		Upload:    form.Upload,
	})
	if err != nil {
		a.writeConsultError(c, sessionID, err)
		return
	}
	writeOutcome(c, outcome)
}

func (a *App) diet(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	form, err := a.readConsultForm(c)
	if err != nil {
		a.writeConsultError(c, sessionID, err)
		return
	}

	outcome, err := a.consult.Diet(c.Request.Context(), consult.DietRequest{
		SessionID: sessionID,
		Condition: form.Condition,
		Message:   form.Message,
	})
	if err != nil {
		a.writeConsultError(c, sessionID, err)
		return
	}
	writeOutcome(c, outcome)
}

func writeOutcome(c *gin.Context, outcome consult.Outcome) {
	c.Header(sessionHeader, outcome.SessionID)
	c.JSON(http.StatusOK, outcome.Result)
}

func (a *App) writeConsultError(c *gin.Context, sessionID string, err error) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		writeError(c, httpErr.Status, httpErr.Detail)
		return
	}
	var clientErr *consult.ClientError
	if errors.As(err, &clientErr) {
		a.logger.Info("rejected consultation input", "session_id", sessionID, "code", clientErr.Code)
		writeError(c, http.StatusBadRequest, clientErr.Detail)
		return
	}
	a.logger.Error("consultation failed", "session_id", sessionID, "path", c.Request.URL.Path, "error", err)
	writeError(c, http.StatusInternalServerError, "Internal server error")
}
