package assignment

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/proft/portfolio/core/user"
)

type policySnapshot struct {
	UseCustomScore  bool   `json:"use_custom_score"`
	CustomMaxScore  *int   `json:"custom_max_score"`
	CustomMinScore  *int   `json:"custom_min_score"`
	ScoreMultiplier string `json:"score_multiplier"`
	ScoreNote       string `json:"score_note,omitempty"`
}

func policySnapshotOf(a Assignment) string {
	return marshalSnapshot(policySnapshot{
		UseCustomScore:  a.UseCustomScore,
		CustomMaxScore:  a.CustomMaxScore,
		CustomMinScore:  a.CustomMinScore,
		ScoreMultiplier: weightOrDefault(a.ScoreMultiplier).StringFixed(ScorePlaces),
		ScoreNote:       a.ScoreNote,
	})
}

type gradeSnapshot struct {
	RawScore   *int    `json:"raw_score"`
	FinalScore *string `json:"final_score"`
}

func gradeSnapshotOf(p Progress) string {
	snap := gradeSnapshot{RawScore: p.RawScore}
	if p.FinalScore.Valid {
		s := p.FinalScore.Decimal.StringFixed(ScorePlaces)
		snap.FinalScore = &s
	}
	return marshalSnapshot(snap)
}

func marshalSnapshot(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func appendHistory(
	ctx context.Context,
	repo Repository,
	a Assignment,
	progressID *string,
	action HistoryAction,
	oldValue, newValue, note, changedBy string,
) (ScoreHistory, error) {
	h, err := repo.AppendHistory(ctx, ScoreHistory{
		AssignmentID: a.ID,
		ProgressID:   progressID,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     newValue,
		Note:         note,
		ChangedBy:    changedBy,
		CreatedAt:    now(),
	})
	return h, errors.Wrap(err, "appending score history")
}

// History returns the score history of an assignment, newest first.
func (svc *Service) History(ctx context.Context, assignmentID string, actor user.User) ([]ScoreHistory, error) {
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !CanViewAssignment(actor, a) {
		return nil, ErrForbidden
	}
	return svc.repo.QueryHistory(ctx, assignmentID)
}
