package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRepository is an in-memory repositories.Repository. Stored rows are
// deep-copied on every read and write so mutations only become visible
// through Update, matching database semantics. WithTx serializes callers
// with a mutex, standing in for the row locks the postgres layer takes.
type fakeRepository struct {
	mu   sync.Mutex
	txMu sync.Mutex

	tests     map[uint]*models.TestDefinition
	questions map[uint]*models.Question
	attempts  map[uint]*models.Attempt
	answers   map[uint]*models.Answer
	overrides []*models.OverrideRecord

	nextAttemptID  uint
	nextAnswerID   uint
	nextOverrideID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tests:     make(map[uint]*models.TestDefinition),
		questions: make(map[uint]*models.Question),
		attempts:  make(map[uint]*models.Attempt),
		answers:   make(map[uint]*models.Answer),
	}
}

func (f *fakeRepository) Test() repositories.TestRepository         { return fakeTestRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository { return fakeQuestionRepo{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository   { return fakeAttemptRepo{f} }
func (f *fakeRepository) Answer() repositories.AnswerRepository     { return fakeAnswerRepo{f} }
func (f *fakeRepository) Override() repositories.OverrideRepository { return fakeOverrideRepo{f} }

func (f *fakeRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(f)
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	c.PresentationOrder = append([]uint(nil), a.PresentationOrder...)
	if a.OverriddenScore != nil {
		v := *a.OverriddenScore
		c.OverriddenScore = &v
	}
	if a.FinishedAt != nil {
		v := *a.FinishedAt
		c.FinishedAt = &v
	}
	c.Answers = nil
	return &c
}

// ===== TEST DEFINITIONS =====

type fakeTestRepo struct{ f *fakeRepository }

func (r fakeTestRepo) Create(ctx context.Context, test *models.TestDefinition) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	c := *test
	r.f.tests[test.ID] = &c
	return nil
}

func (r fakeTestRepo) GetByID(ctx context.Context, id uint) (*models.TestDefinition, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	test, ok := r.f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *test
	return &c, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r fakeQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	question, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *question
	c.Options = append([]models.AnswerOption(nil), question.Options...)
	return &c, nil
}

func (r fakeQuestionRepo) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	result := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		q, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, nil
}

// ===== ATTEMPTS =====

type fakeAttemptRepo struct{ f *fakeRepository }

func (r fakeAttemptRepo) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.attempts {
		if existing.StudentID == attempt.StudentID && existing.TestID == attempt.TestID && !existing.Superseded {
			return false, nil
		}
	}
	r.f.nextAttemptID++
	attempt.ID = r.f.nextAttemptID
	r.f.attempts[attempt.ID] = copyAttempt(attempt)
	return true, nil
}

func (r fakeAttemptRepo) getLocked(id uint) (*models.Attempt, error) {
	attempt, ok := r.f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := copyAttempt(attempt)
	if test, ok := r.f.tests[attempt.TestID]; ok {
		c.Test = *test
	}
	return c, nil
}

func (r fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.getLocked(id)
}

func (r fakeAttemptRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return r.GetByID(ctx, id)
}

func (r fakeAttemptRepo) GetByStudentAndTest(ctx context.Context, studentID string, testID uint) (*models.Attempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for id, attempt := range r.f.attempts {
		if attempt.StudentID == studentID && attempt.TestID == testID && !attempt.Superseded {
			return r.getLocked(id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeAttemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.f.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (r fakeAttemptRepo) Supersede(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	attempt, ok := r.f.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Superseded = true
	return nil
}

func (r fakeAttemptRepo) ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Attempt
	for id, attempt := range r.f.attempts {
		if attempt.TestID != testID {
			continue
		}
		if !filters.IncludeSuperseded && attempt.Superseded {
			continue
		}
		if filters.Status != "" && attempt.Status != filters.Status {
			continue
		}
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		c, _ := r.getLocked(id)
		result = append(result, c)
	}
	return result, int64(len(result)), nil
}

// ===== ANSWERS =====

type fakeAnswerRepo struct{ f *fakeRepository }

func (r fakeAnswerRepo) Upsert(ctx context.Context, answer *models.Answer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.answers {
		if existing.AttemptID == answer.AttemptID && existing.QuestionID == answer.QuestionID {
			answer.ID = existing.ID
			c := *answer
			c.SelectedOptionIDs = append([]uint(nil), answer.SelectedOptionIDs...)
			r.f.answers[existing.ID] = &c
			return nil
		}
	}
	r.f.nextAnswerID++
	answer.ID = r.f.nextAnswerID
	c := *answer
	c.SelectedOptionIDs = append([]uint(nil), answer.SelectedOptionIDs...)
	r.f.answers[answer.ID] = &c
	return nil
}

func (r fakeAnswerRepo) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Answer
	for _, answer := range r.f.answers {
		if answer.AttemptID == attemptID {
			c := *answer
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r fakeAnswerRepo) SumScore(ctx context.Context, attemptID uint) (float64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var total float64
	for _, answer := range r.f.answers {
		if answer.AttemptID == attemptID {
			total += answer.Score
		}
	}
	return total, nil
}

func (r fakeAnswerRepo) Counts(ctx context.Context, attemptID uint) (*repositories.AttemptCounts, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	counts := &repositories.AttemptCounts{}
	for _, answer := range r.f.answers {
		if answer.AttemptID == attemptID {
			counts.Answered++
			if answer.IsCorrect {
				counts.Correct++
			}
		}
	}
	return counts, nil
}

// ===== OVERRIDES =====

type fakeOverrideRepo struct{ f *fakeRepository }

func (r fakeOverrideRepo) Create(ctx context.Context, record *models.OverrideRecord) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextOverrideID++
	record.ID = r.f.nextOverrideID
	c := *record
	r.f.overrides = append(r.f.overrides, &c)
	return nil
}

func (r fakeOverrideRepo) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.OverrideRecord, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.OverrideRecord
	// Newest first.
	for i := len(r.f.overrides) - 1; i >= 0; i-- {
		if r.f.overrides[i].AttemptID == attemptID {
			c := *r.f.overrides[i]
			result = append(result, &c)
		}
	}
	return result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
