package grading

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, retries uint64) *Client {
	return NewClient(Config{
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestClient_GradeSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grade-exam", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("questions_file")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "questions.pdf", header.Filename)
		assert.Equal(t, "Q1. Define inertia.", string(body))

		_, _, err = r.FormFile("answers_file")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		assert.Equal(t, "Be lenient on units", r.FormValue("guidelines"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"summary": map[string]interface{}{
				"total_questions":    4,
				"marks_per_question": 25,
				"total_score":        70,
				"percentage":         70,
				"letter_grade":       "B",
			},
			"student_info": map[string]string{"name": "Ada Obi", "mat_no": "U2021/5520027"},
			"exam_info":    map[string]string{"exam_title": "Mechanics", "subject": "Physics"},
		})
	}))
	defer srv.Close()

	payload, err := newTestClient(srv.URL, 0).Grade(context.Background(), &services.GradingSubmission{
		QuestionsFilename: "questions.pdf",
		Questions:         []byte("Q1. Define inertia."),
		Guidelines:        "Be lenient on units",
	})
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, 70.0, payload.Summary.TotalScore)
	require.NotNil(t, payload.Summary.Percentage)
	assert.Equal(t, 70.0, *payload.Summary.Percentage)
	assert.Equal(t, "U2021/5520027", payload.StudentInfo.MatNo)
	assert.Equal(t, "Mechanics", payload.ExamInfo.ExamTitle)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":{"total_score":10,"percentage":50},"student_info":{"mat_no":"U1"},"exam_info":{"exam_title":"T"}}`))
	}))
	defer srv.Close()

	payload, err := newTestClient(srv.URL, 3).Grade(context.Background(), &services.GradingSubmission{
		QuestionsFilename: "q.txt",
		Questions:         []byte("q"),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "U1", payload.StudentInfo.MatNo)
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"could not read questions file"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Grade(context.Background(), &services.GradingSubmission{
		QuestionsFilename: "q.txt",
		Questions:         []byte("q"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrGradingEngine))
	assert.Contains(t, err.Error(), "could not read questions file")
	assert.Equal(t, int32(1), calls.Load())
}
