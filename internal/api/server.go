package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/keyword-scout/internal/ai"
	"github.com/david/keyword-scout/internal/auth"
	"github.com/david/keyword-scout/internal/db"
	"github.com/david/keyword-scout/internal/models"
	"github.com/david/keyword-scout/internal/provider"
	"github.com/david/keyword-scout/internal/research"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	AI          *ai.OllamaClient
	Provider    provider.MetricsProvider
	Registry    *research.Registry

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	RunID     uuid.UUID          `json:"run_id"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool, registry *research.Registry) *Server {
	e := echo.New()
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
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(pool)

	// Initialize AI client once
	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	aiClient := ai.NewOllamaClient(ollamaHost, "", "")

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		AI:          aiClient,
		Provider:    provider.NewDataForSEOClient(),
		Registry:    registry,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.GET("/profiles", s.handleListProfiles)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/clusters", s.handleListClusters)
	api.GET("/runs/:id/gaps", s.handleListGaps)
	api.GET("/clusters/similar", s.handleSimilarClusters)

	// Admin Routes (triggering research costs provider credits)
	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/research/:profile", s.handleTriggerResearch)
	admin.GET("/admin/job/:id", s.handleJobStatus)
	admin.GET("/seeds", s.handleSeedKeywords)

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Protected Routes (Tracked Keywords)
	tracked := api.Group("/tracked")
	tracked.Use(auth.Middleware)
	tracked.POST("", s.handleTrackKeyword)
	tracked.DELETE("", s.handleUntrackKeyword)
	tracked.GET("", s.handleListTracked)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListProfiles(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Registry.Profiles)
}

func (s *Server) handleListRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := s.Store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		c.Logger().Errorf("Failed to list runs: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if runs == nil {
		runs = []models.ResearchRun{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid run ID"})
	}

	run, err := s.Store.GetRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleListClusters(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid run ID"})
	}

	clusters, err := s.Store.ListClusters(c.Request().Context(), runID)
	if err != nil {
		c.Logger().Errorf("Failed to list clusters: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if clusters == nil {
		clusters = []models.KeywordCluster{}
	}
	return c.JSON(http.StatusOK, clusters)
}

func (s *Server) handleListGaps(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid run ID"})
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	gaps, err := s.Store.ListGaps(c.Request().Context(), runID, limit)
	if err != nil {
		c.Logger().Errorf("Failed to list gaps: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if gaps == nil {
		gaps = []models.KeywordGap{}
	}
	return c.JSON(http.StatusOK, gaps)
}

// handleSimilarClusters embeds the query text and returns stored clusters
// closest in label-embedding space.
func (s *Server) handleSimilarClusters(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q param required"})
	}

	aiCtx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	vec, err := s.AI.GenerateEmbedding(aiCtx, q)
	if err != nil {
		c.Logger().Errorf("Failed to embed query: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Embedding backend unavailable"})
	}

	clusters, err := s.Store.SimilarClusters(c.Request().Context(), vec, 5)
	if err != nil {
		c.Logger().Errorf("Failed to query similar clusters: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if clusters == nil {
		clusters = []models.KeywordCluster{}
	}
	return c.JSON(http.StatusOK, clusters)
}

// handleSeedKeywords fetches one page of the given site and returns candidate
// seed keywords, optionally expanded with related-keyword suggestions from the
// metrics provider.
func (s *Server) handleSeedKeywords(c echo.Context) error {
	pageURL := strings.TrimSpace(c.QueryParam("url"))
	if pageURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url param required"})
	}

	fetcher := provider.NewPageFetcher()
	page, err := fetcher.Fetch(c.Request().Context(), pageURL)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	seeds, err := provider.ExtractSeedKeywords(page.Body)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	resp := map[string]interface{}{
		"url":   pageURL,
		"seeds": seeds,
	}

	if strings.EqualFold(c.QueryParam("expand"), "true") && len(seeds) > 0 {
		related, err := s.Provider.RelatedKeywords(c.Request().Context(), seeds, "US", "en", 100)
		if err != nil {
			c.Logger().Errorf("Related keywords lookup failed: %v", err)
		} else {
			resp["related"] = related
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTriggerResearch(c echo.Context) error {
	profile, err := s.Registry.Get(c.Param("profile"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A research job is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from HTTP lifecycle but preserves
	// trace values. We add our own timeout for safety.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	runID := uuid.New()
	jobID := runID.String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		RunID:     runID,
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	// Run in background goroutine, returns 202 immediately.
	go func() {
		defer jobCancel()

		result, err := s.executeResearch(jobCtx, runID, profile)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[research-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = map[string]interface{}{
			"run_id":   runID,
			"clusters": len(result.Clusters),
			"gaps":     len(result.Gaps),
		}
		log.Printf("[research-job %s] completed: clusters=%d gaps=%d", jobID, len(result.Clusters), len(result.Gaps))
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Research job started",
		"job_id":  jobID,
		"run_id":  runID,
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
	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"run_id":     job.RunID,
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

// Auth Handlers

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// Protected Handlers

type trackRequest struct {
	Keyword  string `json:"keyword"`
	Language string `json:"language"`
	Country  string `json:"country"`
}

func (r trackRequest) key() (models.KeywordKey, error) {
	text := strings.ToLower(strings.TrimSpace(r.Keyword))
	if text == "" {
		return models.KeywordKey{}, fmt.Errorf("keyword is required")
	}
	key := models.KeywordKey{Text: text, Language: r.Language, Country: r.Country}
	if key.Language == "" {
		key.Language = "en"
	}
	if key.Country == "" {
		key.Country = "US"
	}
	return key, nil
}

func (s *Server) handleTrackKeyword(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	key, err := req.key()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := s.AuthService.TrackKeyword(c.Request().Context(), userID, key); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to track keyword"})
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleUntrackKeyword(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	key, err := req.key()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := s.AuthService.UntrackKeyword(c.Request().Context(), userID, key); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to untrack keyword"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "untracked"})
}

func (s *Server) handleListTracked(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	keys, err := s.AuthService.ListTrackedKeywords(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch tracked keywords"})
	}
	if keys == nil {
		keys = []models.KeywordKey{}
	}
	return c.JSON(http.StatusOK, keys)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		// Check X-Admin-Secret header or Bearer token
		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
