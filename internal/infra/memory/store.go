package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"live-trivia-service/internal/domain"
)

// Store is an in-process record store. It enforces the same unique
// constraints as the postgres schema so race handling behaves identically.
type Store struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string]domain.Question
	answers   map[string]domain.Answer // keyed by answerKey(user, question)
	users     map[string]domain.User
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
		answers:   make(map[string]domain.Answer),
		users:     make(map[string]domain.User),
	}
}

func answerKey(userID, questionID string) string {
	return userID + "\x00" + questionID
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; ok {
		return domain.ErrDuplicateKey
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateQuizStatus(_ context.Context, quizID string, status domain.QuizStatus, now time.Time) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Status = status
	quiz.UpdatedAt = now
	s.quizzes[quizID] = quiz
	return quiz, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if _, ok := s.questions[q.ID]; ok {
		return domain.ErrDuplicateKey
	}
	s.questions[q.ID] = q
	return nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *Store) ListLiveQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.IsLive() {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *Store) ActivateExclusive(_ context.Context, quizID, questionID string, now time.Time) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.questions[questionID]
	if !ok || target.QuizID != quizID {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	for id, q := range s.questions {
		if q.QuizID != quizID || id == questionID {
			continue
		}
		ended := now
		q.IsActive = false
		q.Status = domain.QuestionPending
		q.EndedAt = &ended
		s.questions[id] = q
	}
	started := now
	target.IsActive = true
	target.Status = domain.QuestionLive
	target.StartedAt = &started
	target.EndedAt = nil
	s.questions[questionID] = target
	return target, nil
}

func (s *Store) EndQuestion(_ context.Context, questionID string, startedAt *time.Time, now time.Time) (domain.Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, false, domain.ErrQuestionNotFound
	}
	if q.Status == domain.QuestionCompleted && !q.IsActive {
		return q, false, nil
	}
	if startedAt != nil && (!q.IsLive() || q.StartedAt == nil || !q.StartedAt.Equal(*startedAt)) {
		return q, false, nil
	}
	ended := now
	q.IsActive = false
	q.Status = domain.QuestionCompleted
	q.EndedAt = &ended
	s.questions[questionID] = q
	return q, true, nil
}

// DeleteQuestion removes the question and its answers.
func (s *Store) DeleteQuestion(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for key, a := range s.answers {
		if a.QuestionID == questionID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *Store) InsertAnswer(_ context.Context, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[a.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := s.users[a.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	key := answerKey(a.UserID, a.QuestionID)
	if _, ok := s.answers[key]; ok {
		return domain.ErrDuplicateKey
	}
	s.answers[key] = a
	return nil
}

func (s *Store) UpdateAnswer(_ context.Context, a domain.Answer, activeSince time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(a.UserID, a.QuestionID)
	existing, ok := s.answers[key]
	if !ok || existing.ID != a.ID {
		return domain.ErrAnswerNotFound
	}
	if !existing.SubmittedAt.Before(activeSince) {
		return domain.ErrAlreadySubmitted
	}
	s.answers[key] = a
	return nil
}

func (s *Store) GetAnswer(_ context.Context, userID, questionID string) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[answerKey(userID, questionID)]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return a, nil
}

func (s *Store) ListAnswersByQuiz(_ context.Context, quizID string) ([]domain.Answer, error) {
	return s.filterAnswers(func(a domain.Answer) bool { return a.QuizID == quizID }), nil
}

func (s *Store) ListAnswersByQuestion(_ context.Context, questionID string) ([]domain.Answer, error) {
	return s.filterAnswers(func(a domain.Answer) bool { return a.QuestionID == questionID }), nil
}

func (s *Store) filterAnswers(keep func(domain.Answer) bool) []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.userByEmailLocked(email); ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) GetUsers(_ context.Context, userIDs []string) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.User, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(u)
}

func (s *Store) MigrateUser(_ context.Context, staleID string, canonical domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[canonical.ID]; ok {
		return domain.ErrDuplicateKey
	}
	stale, ok := s.users[staleID]
	if ok {
		delete(s.users, staleID)
	}
	if err := s.insertUserLocked(canonical); err != nil {
		if ok {
			s.users[staleID] = stale
		}
		return err
	}
	for key, a := range s.answers {
		if a.UserID != staleID {
			continue
		}
		delete(s.answers, key)
		newKey := answerKey(canonical.ID, a.QuestionID)
		if _, taken := s.answers[newKey]; taken {
			continue
		}
		a.UserID = canonical.ID
		s.answers[newKey] = a
	}
	return nil
}

func (s *Store) insertUserLocked(u domain.User) error {
	if _, ok := s.users[u.ID]; ok {
		return domain.ErrDuplicateKey
	}
	if u.Email != "" {
		if _, ok := s.userByEmailLocked(u.Email); ok {
			return domain.ErrDuplicateKey
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) userByEmailLocked(email string) (domain.User, bool) {
	if email == "" {
		return domain.User{}, false
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return domain.User{}, false
}

func sortQuestions(qs []domain.Question) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].OrderIndex != qs[j].OrderIndex {
			return qs[i].OrderIndex < qs[j].OrderIndex
		}
		return qs[i].ID < qs[j].ID
	})
}
