package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/config"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

// NewSeedCmd inserts a sample quiz so a fresh deployment has something to run.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			svc, err := buildServices(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			quiz, err := seedSampleQuiz(cmd.Context(), svc.controller)
			if err != nil {
				return err
			}
			log.Info("sample quiz created", "quiz_id", quiz.ID, "name", quiz.Name)
			return nil
		},
	}
}

func seedSampleQuiz(ctx context.Context, controller *app.Controller) (domain.Quiz, error) {
	quiz, err := controller.CreateQuiz(ctx, app.NewQuiz{
		Name:        "Guess the Hero",
		Description: "Name the hero from a voice line or a silhouette.",
		Status:      domain.QuizDraft,
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	questions := []app.NewQuestion{
		{
			Type:              domain.QuestionVoiceLine,
			Content:           "https://cdn.example.com/voice/kez-intro.mp3",
			CorrectAnswerHero: "Kez",
			AnswerImageURL:    "https://cdn.example.com/heroes/kez.png",
			TimeLimitSeconds:  20,
		},
		{
			Type:              domain.QuestionImage,
			Content:           "https://cdn.example.com/silhouettes/grux.png",
			ContentMetadata:   map[string]any{"blur": 8},
			CorrectAnswerHero: "Grux",
			AnswerImageURL:    "https://cdn.example.com/heroes/grux.png",
			TimeLimitSeconds:  15,
		},
		{
			Type:              domain.QuestionVoiceLine,
			Content:           "https://cdn.example.com/voice/sevarog-taunt.mp3",
			CorrectAnswerHero: "Sevarog",
			AnswerImageURL:    "https://cdn.example.com/heroes/sevarog.png",
			TimeLimitSeconds:  20,
		},
	}
	for i, q := range questions {
		q.OrderIndex = i
		if _, err := controller.CreateQuestion(ctx, quiz.ID, q); err != nil {
			return domain.Quiz{}, fmt.Errorf("seed question %d: %w", i, err)
		}
	}
	return quiz, nil
}
