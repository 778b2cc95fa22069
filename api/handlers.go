package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stellarlinkco/cotbench/internal/dataset"
	"github.com/stellarlinkco/cotbench/internal/history"
	"github.com/stellarlinkco/cotbench/internal/scoring"
)

type evaluationRequest struct {
	Task           string `json:"task"`
	PredictionFile string `json:"prediction_file"`
	BenchmarkFile  string `json:"benchmark_file"`
	Save           bool   `json:"save"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	entries, err := history.List(s.historyPath())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	if task := strings.TrimSpace(c.Query("task")); task != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e != nil && strings.EqualFold(string(e.Task), task) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, http.StatusBadRequest, errInvalidLimit)
			return
		}
		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	}

	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleRunEvaluation(c *gin.Context) {
	var req evaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := scoring.ParseTask(req.Task)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	predictions, err := dataset.LoadFile(req.PredictionFile)
	if err != nil {
		respondError(c, fileErrorStatus(err), err)
		return
	}
	benchmark, err := dataset.LoadFile(req.BenchmarkFile)
	if err != nil {
		respondError(c, fileErrorStatus(err), err)
		return
	}

	var mismatchLimit int
	if s.config != nil {
		mismatchLimit = s.config.Evaluation.MismatchLimit
	}
	sum, err := scoring.Evaluate(predictions, benchmark, task, scoring.Options{
		MismatchLimit: mismatchLimit,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Save {
		entry := &history.Entry{
			Timestamp:   time.Now().UTC(),
			Task:        task,
			Predictions: req.PredictionFile,
			Benchmark:   req.BenchmarkFile,
			Summary:     sum,
		}
		if err := history.Append(s.historyPath(), entry); err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	c.JSON(http.StatusOK, sum)
}

func (s *Server) historyPath() string {
	if s != nil && s.config != nil {
		if p := strings.TrimSpace(s.config.History.Path); p != "" {
			return p
		}
	}
	return history.DefaultPath
}

func fileErrorStatus(err error) int {
	if os.IsNotExist(err) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func respondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}

var errInvalidLimit = errors.New("invalid limit parameter")
