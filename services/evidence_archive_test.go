package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"rep-challenge-system/pose"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memUploader) Upload(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = body
	return "https://cdn.example/" + key, nil
}

func sessionJSON(t *testing.T, e pose.Exercise, count int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(pose.Result{Exercise: e, Count: count, Frames: 90, StartedAt: time.Now()})
	require.NoError(t, err)
	return raw
}

func parsedSession(t *testing.T, e pose.Exercise, count int) *pose.Result {
	t.Helper()
	res, err := ParseSession(sessionJSON(t, e, count), count)
	require.NoError(t, err)
	return res
}

func TestEvidenceArchive(t *testing.T) {
	up := &memUploader{}
	a := NewEvidenceArchive(up)
	a.now = func() time.Time { return time.Unix(0, 42) }

	url, err := a.Archive(context.Background(), "c1", "u1", 5, parsedSession(t, pose.Pushup, 5))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/evidence/c1/u1/42.json", url)

	var stored struct {
		Reps    int         `json:"reps"`
		Session pose.Result `json:"session"`
	}
	require.NoError(t, json.Unmarshal(up.objects["evidence/c1/u1/42.json"], &stored))
	assert.Equal(t, 5, stored.Reps)
	assert.Equal(t, pose.Pushup, stored.Session.Exercise)
}

func TestParseSessionRejectsBadSummaries(t *testing.T) {
	_, err := ParseSession(json.RawMessage(`{"exercise":`), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseSession(sessionJSON(t, "burpee", 3), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseSession(sessionJSON(t, pose.Squat, 3), 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := ParseSession(sessionJSON(t, pose.Squat, 3), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

func TestEvidenceArchiveUploadFailure(t *testing.T) {
	a := NewEvidenceArchive(&memUploader{err: errors.New("503")})
	_, err := a.Archive(context.Background(), "c1", "u1", 1, parsedSession(t, pose.Situp, 1))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, strings.Contains(err.Error(), "archive session"))
}
