package handlers

import (
	"net/http"
	"strconv"

	"karigar-market/internal/auth"
	"karigar-market/internal/models"
	"karigar-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostingHandler struct {
	postingService *services.PostingService
}

func NewPostingHandler(postingService *services.PostingService) *PostingHandler {
	return &PostingHandler{postingService: postingService}
}

// CreatePosting publishes a new job or contract
// POST /api/postings
func (h *PostingHandler) CreatePosting(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreatePostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	posting, err := h.postingService.CreatePosting(c.Request.Context(), ownerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, posting)
}

// ListOpenPostings returns the public feed with optional filters
// GET /api/postings
func (h *PostingHandler) ListOpenPostings(c *gin.Context) {
	filter := models.PostingFilter{
		Query:    c.Query("q"),
		Kind:     c.Query("kind"),
		Category: c.Query("category"),
		Limit:    models.DefaultFeedLimit,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			filter.Limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	postings, err := h.postingService.ListOpenPostings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"postings": postings,
		"count":    len(postings),
	})
}

// GetPosting returns one posting
// GET /api/postings/:id
func (h *PostingHandler) GetPosting(c *gin.Context) {
	postingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid posting id"})
		return
	}

	posting, err := h.postingService.GetPosting(c.Request.Context(), postingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, posting)
}

// ListMyPostings returns the caller's own postings
// GET /api/postings/mine
func (h *PostingHandler) ListMyPostings(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	postings, err := h.postingService.ListPostingsByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"postings": postings,
		"count":    len(postings),
	})
}

// ClosePosting closes a posting to further submissions
// POST /api/postings/:id/close
func (h *PostingHandler) ClosePosting(c *gin.Context) {
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

	posting, err := h.postingService.ClosePosting(c.Request.Context(), postingID, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, posting)
}
