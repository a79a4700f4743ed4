package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/gateway"
	"live-trivia-service/internal/logger"
)

// fastestCount is how many answers the fastest-answers endpoint lists.
const fastestCount = 3

// API holds the REST handlers.
type API struct {
	controller  *app.Controller
	leaderboard *app.Leaderboard
	media       *app.Media
	mediaPrefix string
	log         *logger.Logger
}

func NewAPI(controller *app.Controller, leaderboard *app.Leaderboard, media *app.Media, mediaPrefix string, log *logger.Logger) *API {
	if mediaPrefix == "" {
		mediaPrefix = gateway.DefaultMediaPrefix
	}
	return &API{
		controller:  controller,
		leaderboard: leaderboard,
		media:       media,
		mediaPrefix: mediaPrefix,
		log:         logger.OrNop(log).With("component", "api"),
	}
}

func (a *API) getQuiz(c *gin.Context) {
	quiz, err := a.controller.GetQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (a *API) listQuestions(c *gin.Context) {
	questions, err := a.controller.ListQuestions(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	// The answer key only travels in question_ended; a completed question may
	// be reactivated later.
	c.JSON(http.StatusOK, gateway.SanitizeAll(questions, a.mediaPrefix))
}

type activeQuestionResponse struct {
	Question      *gateway.PublicQuestion `json:"question"`
	TimeRemaining int                     `json:"timeRemaining"`
}

func (a *API) activeQuestion(c *gin.Context) {
	q, err := a.controller.ActiveQuestion(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	if q == nil {
		c.JSON(http.StatusOK, activeQuestionResponse{})
		return
	}
	public := gateway.Sanitize(*q, a.mediaPrefix)
	c.JSON(http.StatusOK, activeQuestionResponse{Question: &public, TimeRemaining: q.RemainingSeconds(time.Now())})
}

func (a *API) leaderboardRows(c *gin.Context) {
	quizID := c.Param("quizId")
	if _, err := a.controller.GetQuiz(c.Request.Context(), quizID); err != nil {
		a.writeServiceError(c, err)
		return
	}
	limit := -1
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			JSONError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	rows, err := a.leaderboard.Top(c.Request.Context(), quizID, limit)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gateway.LeaderboardPayload{QuizID: quizID, Rows: rows})
}

func (a *API) fastestAnswers(c *gin.Context) {
	questionID := c.Param("questionId")
	q, err := a.controller.GetQuestion(c.Request.Context(), questionID)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	if q.Status != domain.QuestionCompleted {
		JSONError(c, http.StatusUnprocessableEntity, "question has not ended")
		return
	}
	answers, err := a.leaderboard.FastestCorrect(c.Request.Context(), questionID, fastestCount)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

func (a *API) serveMedia(c *gin.Context) {
	obj, err := a.media.Fetch(c.Request.Context(), c.Param("questionId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, obj.ContentType, obj.Body)
}

// Admin

type createQuizRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Status      string     `json:"status"`
}

func (a *API) createQuiz(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := a.controller.CreateQuiz(c.Request.Context(), app.NewQuiz{
		Name:        req.Name,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Status:      domain.QuizStatus(req.Status),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

type quizStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (a *API) setQuizStatus(c *gin.Context) {
	var req quizStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := a.controller.SetQuizStatus(c.Request.Context(), c.Param("quizId"), domain.QuizStatus(req.Status))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

type finalizeResponse struct {
	Quiz    domain.Quiz             `json:"quiz"`
	Winners []domain.LeaderboardRow `json:"winners"`
}

func (a *API) finalizeQuiz(c *gin.Context) {
	quiz, winners, err := a.controller.FinalizeQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	if winners == nil {
		winners = []domain.LeaderboardRow{}
	}
	c.JSON(http.StatusOK, finalizeResponse{Quiz: quiz, Winners: winners})
}

type createQuestionRequest struct {
	Type              string         `json:"questionType" binding:"required"`
	Content           string         `json:"questionContent" binding:"required"`
	ContentMetadata   map[string]any `json:"questionContentMetadata"`
	CorrectAnswerHero string         `json:"correctAnswerHero" binding:"required"`
	AnswerImageURL    string         `json:"answerImageUrl"`
	TimeLimitSeconds  int            `json:"timeLimitSeconds"`
	OrderIndex        int            `json:"orderIndex"`
}

func (a *API) createQuestion(c *gin.Context) {
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := a.controller.CreateQuestion(c.Request.Context(), c.Param("quizId"), app.NewQuestion{
		Type:              domain.QuestionType(req.Type),
		Content:           req.Content,
		ContentMetadata:   req.ContentMetadata,
		CorrectAnswerHero: req.CorrectAnswerHero,
		AnswerImageURL:    req.AnswerImageURL,
		TimeLimitSeconds:  req.TimeLimitSeconds,
		OrderIndex:        req.OrderIndex,
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (a *API) deleteQuestion(c *gin.Context) {
	if err := a.controller.DeleteQuestion(c.Request.Context(), c.Param("questionId")); err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) activateQuestion(c *gin.Context) {
	q, err := a.controller.ActivateQuestion(c.Request.Context(), c.Param("questionId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (a *API) endQuestion(c *gin.Context) {
	q, err := a.controller.EndQuestion(c.Request.Context(), c.Param("questionId"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
