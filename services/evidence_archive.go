package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rep-challenge-system/logging"
	"rep-challenge-system/pose"

	"github.com/rs/zerolog"
)

// ObjectUploader is satisfied by utils.R2Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// EvidenceArchive stores the session summary a client sends with its
// progress submission.
type EvidenceArchive struct {
	uploader ObjectUploader
	now      func() time.Time
	log      zerolog.Logger
}

func NewEvidenceArchive(uploader ObjectUploader) *EvidenceArchive {
	return &EvidenceArchive{
		uploader: uploader,
		now:      time.Now,
		log:      logging.WithComponent("evidence"),
	}
}

// ParseSession decodes raw as a session result. The summary must name a
// known exercise and describe at least reps repetitions.
func ParseSession(raw json.RawMessage, reps int) (*pose.Result, error) {
	var res pose.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: session summary: %v", ErrInvalidInput, err)
	}
	if _, err := pose.ConfigFor(res.Exercise); err != nil {
		return nil, fmt.Errorf("%w: session summary: %v", ErrInvalidInput, err)
	}
	if res.Count < reps {
		return nil, fmt.Errorf("%w: session summary counts %d reps, submitted %d", ErrInvalidInput, res.Count, reps)
	}
	return &res, nil
}

// Archive uploads an accepted session summary. Call it only once the
// progress it backs has been applied.
func (a *EvidenceArchive) Archive(ctx context.Context, challengeID, userID string, reps int, res *pose.Result) (string, error) {
	body, err := json.Marshal(struct {
		ChallengeID string      `json:"challenge_id"`
		UserID      string      `json:"user_id"`
		Reps        int         `json:"reps"`
		Session     pose.Result `json:"session"`
	}{challengeID, userID, reps, *res})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("evidence/%s/%s/%d.json", challengeID, userID, a.now().UnixNano())
	url, err := a.uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		return "", fmt.Errorf("archive session: %w", err)
	}
	log := logging.WithChallenge(a.log, challengeID, userID)
	log.Debug().Str("url", url).Msg("session archived")
	return url, nil
}
