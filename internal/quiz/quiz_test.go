package quiz

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/xp"
)

type fakeTracker struct {
	blocks    map[string]*model.TimeBlock
	completed []string
}

func (f *fakeTracker) Block(id string) (model.TimeBlock, bool) {
	b, ok := f.blocks[id]
	if !ok {
		return model.TimeBlock{}, false
	}
	return *b, true
}

func (f *fakeTracker) CompleteStudy(id string) bool {
	b, ok := f.blocks[id]
	if !ok || b.Type != model.BlockStudy || b.IsCompleted {
		return false
	}
	b.IsCompleted = true
	f.completed = append(f.completed, id)
	return true
}

type fakeAwarder struct {
	sources []string
	total   int
}

func (f *fakeAwarder) AwardXP(amount int, source, icon string) xp.AwardResult {
	f.sources = append(f.sources, source)
	f.total += amount
	return xp.AwardResult{}
}

func newVerifier() (*Verifier, *fakeTracker, *fakeAwarder) {
	tr := &fakeTracker{blocks: map[string]*model.TimeBlock{
		"blk":   {ID: "blk", Type: model.BlockStudy, Subject: "Math"},
		"lunch": {ID: "lunch", Type: model.BlockLunch, Subject: "Lunch"},
	}}
	aw := &fakeAwarder{}
	return NewVerifier(tr, aw, slog.New(slog.NewTextHandler(io.Discard, nil))), tr, aw
}

func TestGrade(t *testing.T) {
	tests := []struct {
		correct, total int
		passed         bool
		perfect        bool
	}{
		{10, 10, true, true},
		{7, 10, true, false},
		{6, 10, false, false},
		{0, 5, false, false},
	}
	for _, tt := range tests {
		res, err := Grade(tt.correct, tt.total)
		if err != nil {
			t.Fatalf("Grade(%d, %d): %v", tt.correct, tt.total, err)
		}
		if res.Passed != tt.passed || res.Perfect != tt.perfect {
			t.Errorf("Grade(%d, %d) = passed %v perfect %v, want %v %v",
				tt.correct, tt.total, res.Passed, res.Perfect, tt.passed, tt.perfect)
		}
	}
}

func TestGradeInvalid(t *testing.T) {
	for _, in := range [][2]int{{1, 0}, {-1, 5}, {6, 5}} {
		if _, err := Grade(in[0], in[1]); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("Grade(%d, %d) err = %v, want ErrInvalidScore", in[0], in[1], err)
		}
	}
}

func TestSubmitPerfect(t *testing.T) {
	v, tr, aw := newVerifier()

	sub, err := v.Submit("blk", 5, 5)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.XPAwarded != 100 || aw.total != 100 {
		t.Errorf("xp = %d (awarded %d), want 100", sub.XPAwarded, aw.total)
	}
	if !sub.BlockCompleted || len(tr.completed) != 1 {
		t.Error("expected block completion")
	}
	if aw.sources[1] != xp.SourcePerfectQuiz {
		t.Errorf("second award source = %q, want %q", aw.sources[1], xp.SourcePerfectQuiz)
	}
}

func TestSubmitFailedStillAwardsCorrect(t *testing.T) {
	v, tr, aw := newVerifier()

	sub, err := v.Submit("blk", 3, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Passed || sub.BlockCompleted {
		t.Error("failed quiz must not complete the block")
	}
	if aw.total != 30 {
		t.Errorf("awarded = %d, want 30", aw.total)
	}
	if len(tr.completed) != 0 {
		t.Errorf("completed = %v, want none", tr.completed)
	}
}

func TestSubmitInvalidAwardsNothing(t *testing.T) {
	v, _, aw := newVerifier()

	if _, err := v.Submit("blk", 4, 0); err == nil {
		t.Fatal("expected error")
	}
	if aw.total != 0 {
		t.Errorf("awarded = %d, want 0", aw.total)
	}
}

func TestSubmitUnknownBlockAwardsNothing(t *testing.T) {
	v, tr, aw := newVerifier()

	if _, err := v.Submit("missing", 5, 5); !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("err = %v, want ErrBlockNotFound", err)
	}
	if _, err := v.Submit("", 5, 5); !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("empty id err = %v, want ErrBlockNotFound", err)
	}
	if aw.total != 0 || len(tr.completed) != 0 {
		t.Errorf("awarded = %d, completed = %v, want nothing", aw.total, tr.completed)
	}
}

func TestSubmitNonStudyBlockRejected(t *testing.T) {
	v, _, aw := newVerifier()

	if _, err := v.Submit("lunch", 5, 5); !errors.Is(err, ErrNotStudyBlock) {
		t.Fatalf("err = %v, want ErrNotStudyBlock", err)
	}
	if aw.total != 0 {
		t.Errorf("awarded = %d, want 0", aw.total)
	}
}

func TestResubmitAfterPassAwardsNothing(t *testing.T) {
	v, tr, aw := newVerifier()

	if _, err := v.Submit("blk", 5, 5); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := v.Submit("blk", 5, 5); !errors.Is(err, ErrBlockCompleted) {
			t.Fatalf("resubmit %d err = %v, want ErrBlockCompleted", i, err)
		}
	}
	if aw.total != 100 {
		t.Errorf("awarded = %d, want 100", aw.total)
	}
	if len(tr.completed) != 1 {
		t.Errorf("completed = %v, want one completion", tr.completed)
	}
}

func TestFailedAttemptCanBeRetried(t *testing.T) {
	v, tr, aw := newVerifier()

	if _, err := v.Submit("blk", 2, 10); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	sub, err := v.Submit("blk", 8, 10)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !sub.BlockCompleted || len(tr.completed) != 1 {
		t.Error("passing retry should complete the block")
	}
	if aw.total != 100 {
		t.Errorf("awarded = %d, want 100", aw.total)
	}
}
