package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/domain"
)

type handlers struct {
	service *app.ProgressionService
	log     *zap.Logger
}

type attemptRequest struct {
	Answers          []*int `json:"answers"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

type quizSubmitRequest struct {
	QuizID    string `json:"quiz_id"`
	Answers   []*int `json:"answers"`
	TimeTaken int    `json:"time_taken"`
}

type courseProgressRequest struct {
	ModuleNumber *int `json:"module_number"`
	SlideNumber  *int `json:"slide_number"`
}

// bind decodes the JSON body, reporting malformed input as a validation error.
func (h *handlers) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, h.log, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

func (h *handlers) initProgress(c *gin.Context) {
	view, err := h.service.Register(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) progress(c *gin.Context) {
	view, err := h.service.Progress(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) submitAttempt(c *gin.Context) {
	var req attemptRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.service.SubmitAttempt(c.Request.Context(), identity(c), c.Param("id"), req.Answers, req.TimeTakenSeconds)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) listChallenges(c *gin.Context) {
	list, err := h.service.Challenges(c.Request.Context(), identity(c), app.ChallengeFilter{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list})
}

func (h *handlers) getChallenge(c *gin.Context) {
	challenge, err := h.service.Challenge(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

func (h *handlers) dailyChallenge(c *gin.Context) {
	view, err := h.service.DailyChallenge(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	lb, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

func (h *handlers) achievements(c *gin.Context) {
	view, err := h.service.Achievements(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) issueQuiz(c *gin.Context) {
	quiz, err := h.service.IssueQuiz(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *handlers) submitQuiz(c *gin.Context) {
	var req quizSubmitRequest
	if !h.bind(c, &req) {
		return
	}
	if req.QuizID == "" {
		writeError(c, h.log, fmt.Errorf("%w: quiz_id is required", domain.ErrValidation))
		return
	}
	res, err := h.service.SubmitQuiz(c.Request.Context(), identity(c), req.QuizID, req.Answers, req.TimeTaken)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) quizStatus(c *gin.Context) {
	status, err := h.service.QuizCompletionStatus(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) completeMiniGame(c *gin.Context) {
	var req app.MiniGameSubmission
	if !h.bind(c, &req) {
		return
	}
	res, err := h.service.CompleteMiniGame(c.Request.Context(), identity(c), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) miniGameStatus(c *gin.Context) {
	status, err := h.service.MiniGameCompletionStatus(c.Request.Context(), identity(c), c.Param("game_type"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) markEducationRead(c *gin.Context) {
	res, err := h.service.MarkEducationRead(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) courseProgress(c *gin.Context) {
	view, err := h.service.CourseProgress(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) updateCourseProgress(c *gin.Context) {
	var req courseProgressRequest
	if !h.bind(c, &req) {
		return
	}
	if req.ModuleNumber == nil || req.SlideNumber == nil {
		writeError(c, h.log, fmt.Errorf("%w: module_number and slide_number are required", domain.ErrValidation))
		return
	}
	view, err := h.service.UpdateCourseProgress(c.Request.Context(), identity(c), c.Param("id"), *req.ModuleNumber, *req.SlideNumber)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) submitFeedback(c *gin.Context) {
	var req app.FeedbackInput
	if !h.bind(c, &req) {
		return
	}
	fb, err := h.service.SubmitFeedback(c.Request.Context(), identity(c), c.Param("id"), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (h *handlers) listFeedback(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.ChallengeFeedback(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": list})
}
