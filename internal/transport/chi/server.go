package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
	"github.com/kailas-cloud/feedlock/internal/domain/strategy"
	classifyuc "github.com/kailas-cloud/feedlock/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/feedlock/internal/usecase/health"
)

// Server exposes the filter pipeline over JSON HTTP.
type Server struct {
	classify        classifier
	cache           scoreCache
	quota           quotaService
	strategies      strategyCatalog
	health          healthChecker
	jobs            jobRunner
	defaultStrategy strategy.Strategy
}

// NewServer creates an HTTP API server.
func NewServer(
	classify classifier,
	cache scoreCache,
	quota quotaService,
	strategies strategyCatalog,
	health healthChecker,
	defaultStrategy strategy.Strategy,
) *Server {
	return &Server{
		classify:        classify,
		cache:           cache,
		quota:           quota,
		strategies:      strategies,
		health:          health,
		defaultStrategy: defaultStrategy,
	}
}

// WithJobs exposes maintenance job status and manual runs.
func (s *Server) WithJobs(jobs jobRunner) *Server {
	s.jobs = jobs
	return s
}

// Mount registers all routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.Classify)
		r.Get("/strategies", s.ListStrategies)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/score", s.GetCachedScore)
			r.Put("/score", s.SetCachedScore)
			r.Delete("/posts/{postID}", s.InvalidatePost)
			r.Post("/sweep", s.SweepCache)
			r.Get("/stats", s.CacheStats)
		})

		r.Route("/quota", func(r chi.Router) {
			r.Get("/stats", s.QuotaStats)
			r.Post("/reset", s.ResetQuota)
			r.Get("/{userID}", s.GetUsage)
			r.Post("/{userID}/check", s.CheckQuota)
		})

		if s.jobs != nil {
			r.Get("/maintenance/jobs", s.ListJobs)
			r.Post("/maintenance/jobs/{name}/run", s.RunJob)
		}
	})
}

// Classify handles POST /v1/classify.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.classify.Classify(r.Context(), classifyuc.Request{
		UserID:   req.UserID,
		Tier:     req.Tier,
		PostID:   req.Post.ID,
		Caption:  req.Post.Caption,
		Hashtags: req.Post.Hashtags,
		Meta: post.Meta{
			Username: req.Post.Username,
			URL:      req.Post.PostURL,
			Type:     post.Type(req.Post.PostType),
		},
		Keywords:  req.Keywords,
		Strategy:  req.Strategy,
		AIEnabled: req.AIEnabled,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	matched := res.MatchedKeywords()
	if matched == nil {
		matched = []string{}
	}
	writeJSON(w, http.StatusOK, FilterResultResponse{
		Decision:         string(res.Decision()),
		Score:            res.Score(),
		Method:           string(res.Method()),
		MatchedKeywords:  matched,
		ProcessingTimeMs: res.ProcessingTimeMs(),
	})
}

// ListStrategies handles GET /v1/strategies.
func (s *Server) ListStrategies(w http.ResponseWriter, r *http.Request) {
	all := s.strategies.Strategies()
	items := make([]StrategyResponse, 0, len(all))
	for _, st := range all {
		th, err := s.strategies.Thresholds(st)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		items = append(items, StrategyResponse{
			Name:        string(st),
			KeywordShow: th.KeywordShow,
			KeywordHide: th.KeywordHide,
			AIShow:      th.AIShow,
		})
	}
	writeJSON(w, http.StatusOK, StrategyListResponse{Items: items, Default: string(s.defaultStrategy)})
}

// GetCachedScore handles GET /v1/cache/score?post_id=&keywords=a,b.
func (s *Server) GetCachedScore(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")
	if postID == "" {
		handleDomainError(w, r, domain.NewValidationError("post_id", "is required"))
		return
	}
	kws, err := keyword.New(splitKeywords(r.URL.Query().Get("keywords")))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	score, ok := s.cache.Get(r.Context(), postID, kws)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no cached score")
		return
	}
	writeJSON(w, http.StatusOK, CachedScoreResponse{PostID: postID, Keywords: kws.Values(), Score: score})
}

// SetCachedScore handles PUT /v1/cache/score.
func (s *Server) SetCachedScore(w http.ResponseWriter, r *http.Request) {
	var req SetScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PostID == "" {
		handleDomainError(w, r, domain.NewValidationError("post_id", "is required"))
		return
	}
	if req.Score == nil || *req.Score < 0 || *req.Score > 1 {
		handleDomainError(w, r, domain.NewValidationError("score", "must be between 0 and 1"))
		return
	}
	if req.TTLSec < 0 {
		handleDomainError(w, r, domain.NewValidationError("ttl_sec", "cannot be negative"))
		return
	}
	kws, err := keyword.New(req.Keywords)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	ttl := s.cache.TTL()
	if req.TTLSec > 0 {
		ttl = time.Duration(req.TTLSec) * time.Second
	}
	s.cache.Set(r.Context(), req.PostID, kws, *req.Score, ttl)
	w.WriteHeader(http.StatusNoContent)
}

// InvalidatePost handles DELETE /v1/cache/posts/{postID}.
func (s *Server) InvalidatePost(w http.ResponseWriter, r *http.Request) {
	n := s.cache.Invalidate(r.Context(), chi.URLParam(r, "postID"))
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// SweepCache handles POST /v1/cache/sweep.
func (s *Server) SweepCache(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.SweepExpired(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// CacheStats handles GET /v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cache.Stats(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CacheStatsResponse{Total: st.Total, Active: st.Active, Expired: st.Expired})
}

// GetUsage handles GET /v1/quota/{userID}?tier=.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := userAndTier(w, r)
	if !ok {
		return
	}
	u, err := s.quota.CurrentUsage(r.Context(), userID, tier)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageToResponse(userID, tier, u))
}

// CheckQuota handles POST /v1/quota/{userID}/check?tier=. A pass consumes one call.
func (s *Server) CheckQuota(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := userAndTier(w, r)
	if !ok {
		return
	}
	if err := s.quota.CheckAndEnforce(r.Context(), userID, tier); err != nil {
		handleDomainError(w, r, err)
		return
	}
	u, err := s.quota.CurrentUsage(r.Context(), userID, tier)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageToResponse(userID, tier, u))
}

// QuotaStats handles GET /v1/quota/stats.
func (s *Server) QuotaStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.quota.Stats(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuotaStatsResponse{
		Date:           string(st.Day),
		TotalUsers:     st.TotalUsers,
		FreeAtLimit:    st.FreeAtLimit,
		PremiumAtLimit: st.PremiumAtLimit,
		AverageUsage:   st.AverageUsage,
	})
}

// ResetQuota handles POST /v1/quota/reset.
func (s *Server) ResetQuota(w http.ResponseWriter, r *http.Request) {
	n, err := s.quota.ResetDailyLimits(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// ListJobs handles GET /v1/maintenance/jobs.
func (s *Server) ListJobs(w http.ResponseWriter, _ *http.Request) {
	status := s.jobs.Status()
	items := make([]JobResponse, 0, len(status))
	for _, j := range status {
		items = append(items, JobResponse{
			Name:      j.Name,
			Schedule:  j.Schedule,
			Enabled:   j.Enabled,
			LastRun:   timePtr(j.LastRun),
			NextRun:   timePtr(j.NextRun),
			LastCount: j.LastCount,
			LastError: j.LastError,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RunJob handles POST /v1/maintenance/jobs/{name}/run.
func (s *Server) RunJob(w http.ResponseWriter, r *http.Request) {
	n, err := s.jobs.RunNow(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func userAndTier(w http.ResponseWriter, r *http.Request) (string, domquota.Tier, bool) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		handleDomainError(w, r, domain.NewValidationError("user_id", "is required"))
		return "", "", false
	}
	tier := domquota.TierFree
	if raw := r.URL.Query().Get("tier"); raw != "" {
		t, err := domquota.ParseTier(raw)
		if err != nil {
			handleDomainError(w, r, err)
			return "", "", false
		}
		tier = t
	}
	return userID, tier, true
}

func usageToResponse(userID string, tier domquota.Tier, u domquota.Usage) UsageResponse {
	return UsageResponse{
		UserID:    userID,
		Tier:      string(tier),
		Today:     u.Today,
		Limit:     u.Limit,
		Remaining: u.Remaining,
		ResetAt:   u.ResetAt,
	}
}
