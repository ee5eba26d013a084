package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/store"
)

func newTestServer(t *testing.T, required ...string) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(NewServer(st, required, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSubmitRoundTrip(t *testing.T) {
	srv := newTestServer(t, "keyboarding-final")
	client := NewClient(srv.URL+"/", time.Second)

	reply, err := client.Submit(context.Background(), model.Submission{
		AssessmentID: "keyboarding-final",
		LearnerID:    "ada",
		Score:        0,
		Metadata:     map[string]any{"wpm": 12},
	})
	require.NoError(t, err)
	assert.True(t, reply.Accepted)
	assert.False(t, reply.CourseCompleted)

	reply, err = client.Submit(context.Background(), model.Submission{
		AssessmentID: "keyboarding-final",
		LearnerID:    "ada",
		Score:        1,
	})
	require.NoError(t, err)
	assert.True(t, reply.Accepted)
	assert.True(t, reply.CourseCompleted)

	// A later failing attempt never revokes the pass.
	reply, err = client.Submit(context.Background(), model.Submission{
		AssessmentID: "keyboarding-final",
		LearnerID:    "ada",
		Score:        0,
	})
	require.NoError(t, err)
	assert.True(t, reply.CourseCompleted)
}

func TestCourseCompletedNeedsEveryRequiredAssessment(t *testing.T) {
	srv := newTestServer(t, "final-a", "final-b")
	client := NewClient(srv.URL, time.Second)

	reply, err := client.Submit(context.Background(), model.Submission{AssessmentID: "final-a", LearnerID: "bo", Score: 1})
	require.NoError(t, err)
	assert.False(t, reply.CourseCompleted)

	reply, err = client.Submit(context.Background(), model.Submission{AssessmentID: "final-b", LearnerID: "bo", Score: 1})
	require.NoError(t, err)
	assert.True(t, reply.CourseCompleted)
}

func TestListScores(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL, time.Second)
	_, err := client.Submit(context.Background(), model.Submission{AssessmentID: "final", LearnerID: "cy", Score: 1})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/v1/learners/cy/scores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scores []model.ScoreRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scores))
	require.Len(t, scores, 1)
	assert.Equal(t, "final", scores[0].AssessmentID)
	assert.Equal(t, 1, scores[0].Score)
}

func TestServerRejectsBadScore(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/v1/assessments/final/scores", "application/json",
		strings.NewReader(`{"learnerId":"dee","score":3}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	client := NewClient(srv.URL, time.Second)
	_, err = client.Submit(context.Background(), model.Submission{AssessmentID: "final", Score: 1})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientDisabled(t *testing.T) {
	_, err := NewClient("", time.Second).Submit(context.Background(), model.Submission{AssessmentID: "x", LearnerID: "y"})
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, time.Second).Submit(context.Background(), model.Submission{AssessmentID: "x", LearnerID: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
