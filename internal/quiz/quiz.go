// Package quiz grades study-block verification quizzes and turns a passing
// result into a completed study block.
package quiz

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/xp"
)

// PassThreshold is the minimum accuracy that verifies a study block.
const PassThreshold = 0.7

var (
	ErrInvalidScore   = errors.New("correct answers must be between 0 and total, and total must be positive")
	ErrBlockNotFound  = errors.New("block not found")
	ErrNotStudyBlock  = errors.New("only study blocks are verified by quiz")
	ErrBlockCompleted = errors.New("study block already completed")
)

// Result is a graded quiz attempt.
type Result struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
	Passed   bool    `json:"passed"`
	Perfect  bool    `json:"perfect"`
}

// Grade scores an attempt.
func Grade(correct, total int) (Result, error) {
	if total <= 0 || correct < 0 || correct > total {
		return Result{}, ErrInvalidScore
	}
	acc := float64(correct) / float64(total)
	return Result{
		Correct:  correct,
		Total:    total,
		Accuracy: acc,
		Passed:   acc >= PassThreshold,
		Perfect:  correct == total,
	}, nil
}

// StudyCompleter looks up today's blocks and completes a study block once it
// is verified.
type StudyCompleter interface {
	Block(id string) (model.TimeBlock, bool)
	CompleteStudy(blockID string) bool
}

type Awarder interface {
	AwardXP(amount int, source, icon string) xp.AwardResult
}

// Submission is the outcome of Submit.
type Submission struct {
	Result
	XPAwarded      int  `json:"xp_awarded"`
	BlockCompleted bool `json:"block_completed"`
}

type Verifier struct {
	mu      sync.Mutex
	tracker StudyCompleter
	awarder Awarder
	logger  *slog.Logger
}

func NewVerifier(tracker StudyCompleter, awarder Awarder, logger *slog.Logger) *Verifier {
	return &Verifier{tracker: tracker, awarder: awarder, logger: logger}
}

// Submit grades an attempt for blockID, which must be a pending study block
// in today's routine. Correct answers earn XP whether or not the quiz passes;
// a perfect score earns a one-off bonus; a pass completes the study block.
// Nothing is awarded for an invalid score or a block that cannot be verified.
func (v *Verifier) Submit(blockID string, correct, total int) (Submission, error) {
	res, err := Grade(correct, total)
	if err != nil {
		return Submission{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	b, ok := v.tracker.Block(blockID)
	switch {
	case !ok:
		return Submission{}, ErrBlockNotFound
	case b.Type != model.BlockStudy:
		return Submission{}, ErrNotStudyBlock
	case b.IsCompleted:
		return Submission{}, ErrBlockCompleted
	}
	sub := Submission{Result: res}

	if correct > 0 {
		amount := correct * xp.QuizCorrectXP
		v.awarder.AwardXP(amount, xp.SourceQuiz, "questionmark.circle")
		sub.XPAwarded += amount
	}
	if res.Perfect {
		v.awarder.AwardXP(xp.PerfectQuizBonusXP, xp.SourcePerfectQuiz, "star.circle")
		sub.XPAwarded += xp.PerfectQuizBonusXP
	}
	if res.Passed {
		sub.BlockCompleted = v.tracker.CompleteStudy(blockID)
	}

	v.logger.Info("quiz submitted",
		"block_id", blockID,
		"correct", correct,
		"total", total,
		"passed", res.Passed,
		"xp", sub.XPAwarded,
	)
	return sub, nil
}
