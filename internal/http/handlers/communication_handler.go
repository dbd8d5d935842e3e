// Communication and statistics HTTP handlers.
//
// Communications are append-only session history written by the external
// agent; this surface only reads them. The statistics endpoint aggregates
// distinct sessions per month for dashboard charts.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// CommunicationHandlers groups the communication read endpoints.
type CommunicationHandlers struct {
	DB *gorm.DB
}

// NewCommunicationHandlers constructs a CommunicationHandlers.
func NewCommunicationHandlers(db *gorm.DB) *CommunicationHandlers {
	return &CommunicationHandlers{DB: db}
}

// ListBySession godoc
// @ID          listCommunications
// @Summary     List a session's communications
// @Description Returns the session's communications in ascending id order, i.e. the order they were appended. An unknown session yields an empty array.
// @Tags        Communications
// @Produce     json
// @Param       session_id  path  string  true  "Session token"
// @Success     200  {array}   domain.Communication
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /communications/{session_id} [get]
func (h *CommunicationHandlers) ListBySession(c *gin.Context) {
	comms, err := repo.ListCommunications(c.Request.Context(), h.DB, c.Param("session_id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, comms)
}

// MonthlyStatsSeries is one named 12-slot series of monthly counts.
type MonthlyStatsSeries struct {
	Name string    `json:"name"`
	Data [12]int64 `json:"data"`
}

// MonthlyStatsResponse is the by-month statistics payload.
type MonthlyStatsResponse struct {
	CurrentYear MonthlyStatsSeries `json:"current_year"`
}

// MonthlyStats godoc
// @ID          communicationStatsByMonth
// @Summary     Distinct sessions per month
// @Description Counts distinct communication sessions per month of the current year. Months without traffic are zero-filled.
// @Tags        Statistics
// @Produce     json
// @Success     200  {object}  handlers.MonthlyStatsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /statistics/communications/by-month [get]
func (h *CommunicationHandlers) MonthlyStats(c *gin.Context) {
	counts, err := repo.MonthlySessionCounts(c.Request.Context(), h.DB, time.Now().UTC().Year())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, MonthlyStatsResponse{
		CurrentYear: MonthlyStatsSeries{Name: "This Year", Data: counts},
	})
}
