package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/podsum/internal/domain"
	"github.com/timmy/podsum/internal/jobs"
	"github.com/timmy/podsum/internal/logger"
	"github.com/timmy/podsum/internal/pipeline"
	"github.com/timmy/podsum/internal/service"
)

// JobHandler handles job creation, processing, and result retrieval.
type JobHandler struct {
	ingest       *service.IngestService
	speech       *service.SpeechService
	orchestrator *pipeline.Orchestrator
	registry     *jobs.Registry
	maxUploadMB  int
}

// NewJobHandler creates a new job handler.
func NewJobHandler(
	ingest *service.IngestService,
	speech *service.SpeechService,
	orchestrator *pipeline.Orchestrator,
	registry *jobs.Registry,
	maxUploadMB int,
) *JobHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 200
	}
	return &JobHandler{
		ingest:       ingest,
		speech:       speech,
		orchestrator: orchestrator,
		registry:     registry,
		maxUploadMB:  maxUploadMB,
	}
}

// jobStatus is the status view shared by the job endpoints.
type jobStatus struct {
	JobID     string            `json:"job_id"`
	Stage     domain.Stage      `json:"stage"`
	Detail    string            `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Errors    []string          `json:"errors"`
	Assets    map[string]string `json:"assets"`
}

func statusView(job domain.Job) jobStatus {
	return jobStatus{
		JobID:     job.ID,
		Stage:     job.Stage,
		Detail:    job.Detail,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		Errors:    job.Errors,
		Assets:    job.Assets,
	}
}

type createJobRequest struct {
	AudioURL string `json:"audio_url" form:"audio_url"`
}

// CreateJob registers a new job from an uploaded audio file or a
// remote audio URL.
func (h *JobHandler) CreateJob(c *gin.Context) {
	ctx := c.Request.Context()

	if file, err := c.FormFile("file"); err == nil {
		if file.Size > int64(h.maxUploadMB)<<20 {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file is too large"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}

		job, err := h.ingest.CreateFromUpload(ctx, file.Filename, data)
		if err != nil {
			logger.CtxError(ctx, "Failed to store upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded audio"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": statusView(job)})
		return
	}

	var req createJobRequest
	_ = c.ShouldBind(&req)
	if req.AudioURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide an audio file or audio_url"})
		return
	}

	job, err := h.ingest.CreateFromURL(ctx, req.AudioURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": statusView(job)})
}

type processRequest struct {
	EnableSpeechSynthesis bool `json:"enable_speech_synthesis"`
}

// StartProcessing schedules the processing pipeline for a job.
func (h *JobHandler) StartProcessing(c *gin.Context) {
	jobID := c.Param("id")

	var req processRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if _, err := h.registry.Get(jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	audioPath, err := h.ingest.SourceAudioPath(jobID)
	if err != nil {
		if errors.Is(err, service.ErrNoAudioSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio source not available for processing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.Launch(jobID, audioPath, req.EnableSpeechSynthesis); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, pipeline.ErrJobAlreadyRunning), errors.Is(err, pipeline.ErrJobAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	job, err := h.registry.Snapshot(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": statusView(job)})
}

// resultsResponse carries the current status plus whatever results
// exist so far. It never blocks on an in-flight run.
type resultsResponse struct {
	JobID           string             `json:"job_id"`
	Status          jobStatus          `json:"status"`
	Transcript      *domain.Transcript `json:"transcript"`
	Summary         *domain.Summary    `json:"summary"`
	AudioURL        string             `json:"audio_url,omitempty"`
	SummaryAudioURL string             `json:"summary_audio_url,omitempty"`
}

// GetResults returns the job's status, transcript, and summary.
func (h *JobHandler) GetResults(c *gin.Context) {
	job, err := h.registry.Snapshot(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, resultsResponse{
		JobID:           job.ID,
		Status:          statusView(job),
		Transcript:      job.Transcript,
		Summary:         job.Summary,
		AudioURL:        job.Assets[domain.AssetSourceAudio],
		SummaryAudioURL: job.SummaryAudioRef,
	})
}

type speechRequest struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice"`
}

// SynthesizeSpeech generates spoken audio for the provided summary text.
func (h *JobHandler) SynthesizeSpeech(c *gin.Context) {
	jobID := c.Param("id")

	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	ref, err := h.speech.Synthesize(c.Request.Context(), jobID, req.Text, req.Voice)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, service.ErrSpeechDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "speech synthesis is not configured"})
		default:
			logger.CtxError(c.Request.Context(), "Speech synthesis failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "speech synthesis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "audio_url": ref})
}
