package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"live-trivia-service/internal/logger"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowOrigins []string
	AdminKey     string
	Log          *logger.Logger
}

// NewRouter mounts the REST API, the media proxy and the websocket endpoint.
func NewRouter(api *API, ws *WSHandler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(opts.Log), CORS(opts.AllowOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws", gin.WrapF(ws.ServeWS))

	pub := r.Group("/api")
	{
		pub.GET("/quizzes/:quizId", api.getQuiz)
		pub.GET("/quizzes/:quizId/questions", api.listQuestions)
		pub.GET("/quizzes/:quizId/questions/active", api.activeQuestion)
		pub.GET("/quizzes/:quizId/leaderboard", api.leaderboardRows)
		pub.GET("/questions/:questionId/fastest", api.fastestAnswers)
		pub.GET("/media/questions/:questionId", api.serveMedia)
	}

	admin := r.Group("/api/admin", RequireAdmin(opts.AdminKey))
	{
		admin.POST("/quizzes", api.createQuiz)
		admin.PATCH("/quizzes/:quizId/status", api.setQuizStatus)
		admin.POST("/quizzes/:quizId/finalize", api.finalizeQuiz)
		admin.POST("/quizzes/:quizId/questions", api.createQuestion)
		admin.DELETE("/questions/:questionId", api.deleteQuestion)
		admin.POST("/questions/:questionId/activate", api.activateQuestion)
		admin.POST("/questions/:questionId/end", api.endQuestion)
	}
	return r
}
