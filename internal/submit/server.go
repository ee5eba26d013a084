package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// ScoreStore persists submitted scores.
type ScoreStore interface {
	UpsertScore(ctx context.Context, rec model.ScoreRecord) error
	ListScores(ctx context.Context, learnerID string) ([]model.ScoreRecord, error)
}

// Server exposes the score endpoint.
type Server struct {
	store    ScoreStore
	required []string
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer returns a server. A learner's course counts as completed once
// every assessment in required has a passing score.
func NewServer(store ScoreStore, required []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, required: required, logger: logger, now: time.Now}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/assessments/{assessmentID}/scores", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/learners/{learnerID}/scores", s.handleList).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	assessmentID := mux.Vars(r)["assessmentID"]
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LearnerID == "" {
		http.Error(w, "missing learnerId", http.StatusBadRequest)
		return
	}
	if req.Score != 0 && req.Score != 1 {
		http.Error(w, "score must be 0 or 1", http.StatusBadRequest)
		return
	}

	rec := model.ScoreRecord{
		AssessmentID: assessmentID,
		LearnerID:    req.LearnerID,
		Score:        req.Score,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.store.UpsertScore(r.Context(), rec); err != nil {
		s.logger.Error("store score failed",
			zap.String("assessment", assessmentID),
			zap.String("learner", req.LearnerID),
			zap.Error(err))
		http.Error(w, "could not store score", http.StatusInternalServerError)
		return
	}

	completed, err := s.courseCompleted(r.Context(), req.LearnerID)
	if err != nil {
		s.logger.Warn("course completion check failed", zap.String("learner", req.LearnerID), zap.Error(err))
	}
	s.logger.Info("score accepted",
		zap.String("assessment", assessmentID),
		zap.String("learner", req.LearnerID),
		zap.Int("score", req.Score),
		zap.Bool("courseCompleted", completed))
	writeJSON(w, http.StatusOK, model.SubmissionReply{Accepted: true, CourseCompleted: completed})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerID"]
	scores, err := s.store.ListScores(r.Context(), learnerID)
	if err != nil {
		s.logger.Error("list scores failed", zap.String("learner", learnerID), zap.Error(err))
		http.Error(w, "could not list scores", http.StatusInternalServerError)
		return
	}
	if scores == nil {
		scores = []model.ScoreRecord{}
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) courseCompleted(ctx context.Context, learnerID string) (bool, error) {
	if len(s.required) == 0 {
		return false, nil
	}
	scores, err := s.store.ListScores(ctx, learnerID)
	if err != nil {
		return false, err
	}
	passed := make(map[string]bool, len(scores))
	for _, sc := range scores {
		if sc.Score == 1 {
			passed[sc.AssessmentID] = true
		}
	}
	for _, id := range s.required {
		if !passed[id] {
			return false, nil
		}
	}
	return true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err
	}
}
