package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/launchpad/opportunity-radar/internal/auth"
	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/ingest"
	"github.com/launchpad/opportunity-radar/internal/models"
	"github.com/launchpad/opportunity-radar/internal/status"
)

type Server struct {
	Store       *dataset.Store
	Pipeline    *ingest.Pipeline
	AuthService *auth.Service
	Echo        *echo.Echo

	// Now feeds display-status derivation, replaceable in tests.
	Now func() time.Time

	// Background refresh tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

// OpportunityView is an Opportunity plus the status derived for the request
// time. The stored status field stays untouched on disk; display_status is
// what clients should render.
type OpportunityView struct {
	models.Opportunity
	DisplayStatus string `json:"display_status"`
}

func NewServer(store *dataset.Store, pipeline *ingest.Pipeline, authService *auth.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Store:       store,
		Pipeline:    pipeline,
		AuthService: authService,
		Echo:        e,
		Now:         time.Now,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:id", s.handleGetOpportunity)
	api.GET("/sources", s.handleGetSources)
	api.GET("/stats", s.handleGetStats)

	api.POST("/auth/login", s.handleLogin)

	admin := api.Group("")
	admin.Use(auth.Middleware)
	admin.POST("/refresh", s.handleRefresh)
	admin.GET("/admin/job/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type loginRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	token, err := s.AuthService.Login(req.Secret)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// views loads the dataset and derives per-record display statuses at the
// request time.
func (s *Server) views() ([]OpportunityView, time.Time, error) {
	ds, err := s.Store.Load()
	if err != nil {
		return nil, time.Time{}, err
	}

	now := s.Now()
	views := make([]OpportunityView, 0, len(ds.Opportunities))
	for _, opp := range ds.Opportunities {
		views = append(views, OpportunityView{
			Opportunity:   opp,
			DisplayStatus: status.Derive(opp, now),
		})
	}
	return views, ds.LastUpdated, nil
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	views, lastUpdated, err := s.views()
	if err != nil {
		c.Logger().Errorf("Failed to load dataset: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	typ := strings.ToLower(c.QueryParam("type"))
	st := strings.ToLower(c.QueryParam("status"))
	country := c.QueryParam("country")
	source := c.QueryParam("source")
	tag := strings.ToLower(c.QueryParam("tag"))
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))

	filtered := make([]OpportunityView, 0, len(views))
	for _, v := range views {
		if typ != "" && v.Type != typ {
			continue
		}
		if st != "" && v.DisplayStatus != st {
			continue
		}
		if country != "" && !strings.EqualFold(v.Country, country) {
			continue
		}
		if source != "" && !strings.EqualFold(v.Source, source) {
			continue
		}
		if tag != "" && !hasTag(v.Tags, tag) {
			continue
		}
		if q != "" && !matchesQuery(v, q) {
			continue
		}
		filtered = append(filtered, v)
	}

	sortViews(filtered, c.QueryParam("sort"))

	limit := len(filtered)
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}
	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := filtered[offset:end]

	// The dataset mutates underneath on every scrape; clients re-fetch.
	c.Response().Header().Set("Cache-Control", "no-store")

	return c.JSON(http.StatusOK, map[string]any{
		"total":         total,
		"last_updated":  lastUpdated,
		"opportunities": page,
	})
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

func matchesQuery(v OpportunityView, q string) bool {
	return strings.Contains(strings.ToLower(v.Name), q) ||
		strings.Contains(strings.ToLower(v.Organization), q) ||
		strings.Contains(strings.ToLower(v.Description), q)
}

// sortViews orders by deadline (soonest first, rolling last) or date_added
// (newest first, the default).
func sortViews(views []OpportunityView, key string) {
	switch key {
	case "deadline":
		sort.SliceStable(views, func(i, j int) bool {
			di, iok := views[i].DeadlineTime()
			dj, jok := views[j].DeadlineTime()
			if iok != jok {
				return iok
			}
			if !iok {
				return views[i].ID < views[j].ID
			}
			if !di.Equal(dj) {
				return di.Before(dj)
			}
			return views[i].ID < views[j].ID
		})
	default:
		sort.SliceStable(views, func(i, j int) bool {
			if !views[i].DateAdded.Equal(views[j].DateAdded) {
				return views[i].DateAdded.After(views[j].DateAdded)
			}
			return views[i].ID < views[j].ID
		})
	}
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	views, _, err := s.views()
	if err != nil {
		c.Logger().Errorf("Failed to load dataset: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	id := c.Param("id")
	for _, v := range views {
		if v.ID == id {
			return c.JSON(http.StatusOK, v)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
}

func (s *Server) handleGetSources(c echo.Context) error {
	type sourceInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Strategy string `json:"strategy"`
		Tag      string `json:"source"`
	}

	active := s.Pipeline.Registry.Active()
	out := make([]sourceInfo, 0, len(active))
	for _, src := range active {
		out = append(out, sourceInfo{ID: src.ID, Name: src.Name, Strategy: src.Strategy, Tag: src.Tag()})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStats(c echo.Context) error {
	views, lastUpdated, err := s.views()
	if err != nil {
		c.Logger().Errorf("Failed to load dataset: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	byType := make(map[string]int)
	byStatus := make(map[string]int)
	bySource := make(map[string]int)
	for _, v := range views {
		byType[v.Type]++
		byStatus[v.DisplayStatus]++
		bySource[v.Source]++
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total":        len(views),
		"last_updated": lastUpdated,
		"by_type":      byType,
		"by_status":    byStatus,
		"by_source":    bySource,
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A refresh is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from the HTTP lifecycle but preserves
	// trace values. We add our own timeout for safety.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 15*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	// Run in background goroutine and return 202 immediately.
	go func() {
		defer jobCancel()

		report, err := s.Pipeline.Run(jobCtx)
		if err != nil {
			s.jobMu.Lock()
			job.Status = "failed"
			job.Error = err.Error()
			job.EndedAt = time.Now()
			s.jobMu.Unlock()
			log.Printf("[refresh-job %s] failed: %v", jobID, err)
			return
		}

		s.jobMu.Lock()
		job.Status = "completed"
		job.EndedAt = time.Now()
		job.Result = report
		s.jobMu.Unlock()
		log.Printf("[refresh-job %s] completed: %d unique opportunities", jobID, report.Total)
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Refresh started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/admin/job/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	job := s.runningJob
	s.jobMu.Unlock()

	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	s.jobMu.Lock()
	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	s.jobMu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
