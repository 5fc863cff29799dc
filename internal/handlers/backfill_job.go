package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"callsync/internal/config"
	"callsync/internal/k8s"

	"github.com/labstack/echo/v4"
)

// TriggerBackfillRequest represents the request to trigger a backfill job
type TriggerBackfillRequest struct {
	Platform string `json:"platform"`
	DaysBack int    `json:"days_back"`
	Limit    int    `json:"limit"`
}

// TriggerBackfillResponse represents the response from triggering a backfill
type TriggerBackfillResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobName string `json:"job_name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JobStatus represents the status of a Kubernetes job
type JobStatus struct {
	JobName        string  `json:"job_name"`
	Status         string  `json:"status"`
	Active         int32   `json:"active"`
	Succeeded      int32   `json:"succeeded"`
	Failed         int32   `json:"failed"`
	StartTime      *string `json:"start_time,omitempty"`
	CompletionTime *string `json:"completion_time,omitempty"`
}

// TriggerBackfillHandler launches a Kubernetes Job that runs the one-shot
// sync binary over a historical window. Long backfills run out of band so
// the API process stays responsive.
// @Summary Trigger a historical backfill job
// @Description Launches a Kubernetes Job that syncs calls for the given platform over a historical window
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TriggerBackfillRequest true "Backfill parameters"
// @Success 200 {object} TriggerBackfillResponse
// @Failure 400 {object} TriggerBackfillResponse
// @Failure 500 {object} TriggerBackfillResponse
// @Router /api/admin/backfill [post]
func TriggerBackfillHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		fmt.Println("[BACKFILL_JOB] Received trigger request")

		var req TriggerBackfillRequest
		if err := c.Bind(&req); err != nil {
			fmt.Printf("[BACKFILL_JOB] Invalid request: %v\n", err)
			return c.JSON(http.StatusBadRequest, TriggerBackfillResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if req.Platform == "" {
			return c.JSON(http.StatusBadRequest, TriggerBackfillResponse{
				Success: false,
				Error:   "platform is required",
			})
		}
		if req.DaysBack <= 0 {
			req.DaysBack = 30
		}
		if req.Limit <= 0 {
			req.Limit = 500
		}

		// Generate unique job name with timestamp
		jobName := fmt.Sprintf("backfill-%s-%d", req.Platform, time.Now().Unix())

		k8sClient, err := k8s.NewClient("callsync")
		if err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to create Kubernetes client: %v\n", err)
			return c.JSON(http.StatusInternalServerError, TriggerBackfillResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		containerImage := cfg.BackfillImage
		if containerImage == "" {
			containerImage = "callsync:latest"
		}

		params := k8s.BackfillParams{
			Platform: req.Platform,
			DaysBack: req.DaysBack,
			Limit:    req.Limit,
		}
		if err := k8sClient.CreateBackfillJob(ctx, jobName, containerImage, params); err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to create job: %v\n", err)
			return c.JSON(http.StatusInternalServerError, TriggerBackfillResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes job: %v", err),
			})
		}

		fmt.Printf("[BACKFILL_JOB] Successfully created job: %s\n", jobName)

		return c.JSON(http.StatusOK, TriggerBackfillResponse{
			Success: true,
			Message: "Backfill job triggered successfully",
			JobName: jobName,
		})
	}
}

// GetBackfillStatusHandler gets the status of a backfill job
// @Summary Get backfill job status
// @Tags admin
// @Produce json
// @Param jobName path string true "Job name"
// @Success 200 {object} JobStatus
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/admin/backfill/{jobName} [get]
func GetBackfillStatusHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobName := c.Param("jobName")

		k8sClient, err := k8s.NewClient("callsync")
		if err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to create Kubernetes client: %v\n", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := k8sClient.GetJobStatus(ctx, jobName)
		if err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to get job status: %v\n", err)
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("Job not found: %v", err),
			})
		}

		status := "pending"
		if job.Status.Active > 0 {
			status = "running"
		} else if job.Status.Succeeded > 0 {
			status = "completed"
		} else if job.Status.Failed > 0 {
			status = "failed"
		}

		var startTime, completionTime *string
		if job.Status.StartTime != nil {
			st := job.Status.StartTime.Format(time.RFC3339)
			startTime = &st
		}
		if job.Status.CompletionTime != nil {
			ct := job.Status.CompletionTime.Format(time.RFC3339)
			completionTime = &ct
		}

		return c.JSON(http.StatusOK, JobStatus{
			JobName:        jobName,
			Status:         status,
			Active:         job.Status.Active,
			Succeeded:      job.Status.Succeeded,
			Failed:         job.Status.Failed,
			StartTime:      startTime,
			CompletionTime: completionTime,
		})
	}
}
