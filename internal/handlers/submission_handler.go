package handlers

import (
	"net/http"

	"karigar-market/internal/auth"
	"karigar-market/internal/models"
	"karigar-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// Submit files an application or bid against a posting
// POST /api/postings/:id/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	postingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid posting id"})
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionService.Submit(c.Request.Context(), postingID, actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// ListForPosting returns a posting's submissions to its owner
// GET /api/postings/:id/submissions
func (h *SubmissionHandler) ListForPosting(c *gin.Context) {
	requesterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	postingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid posting id"})
		return
	}

	submissions, err := h.submissionService.ListSubmissionsForPosting(c.Request.Context(), postingID, requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// ListMine returns the caller's submissions with posting snapshots
// GET /api/submissions/mine
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	submissions, err := h.submissionService.ListSubmissionsForActor(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// Decide accepts or rejects a pending submission
// POST /api/submissions/:id/decide
func (h *SubmissionHandler) Decide(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	submissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	var req models.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionService.Decide(c.Request.Context(), submissionID, models.Decision(req.Decision), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
