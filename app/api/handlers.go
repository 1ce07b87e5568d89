package api

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/regnews/app/database"
	"github.com/lysyi3m/regnews/app/feed"
	"github.com/lysyi3m/regnews/app/news"
	"github.com/lysyi3m/regnews/app/region"
	"github.com/lysyi3m/regnews/app/tasks"
)

const defaultFeedLimit = 100

func NewHandler(store NewsReader, catalog *region.Catalog, scheduler tasks.TaskSchedulerInterface,
	refresh RefreshFactory, settings Settings) *Handler {
	if settings.FeedLimit <= 0 {
		settings.FeedLimit = defaultFeedLimit
	}
	return &Handler{
		store:     store,
		catalog:   catalog,
		generator: feed.NewGenerator(),
		scheduler: scheduler,
		refresh:   refresh,
		settings:  settings,
		now:       time.Now,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	slug := c.Param("region")
	r, ok := h.catalog.GetBySlug(slug)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	records, err := h.store.Query(c.Request.Context(), database.Filter{
		Regions: []string{r.Name},
		Start:   time.Time{},
		End:     h.today(),
	})
	if err != nil {
		slog.Error("Database error", "operation", "query", "region", r.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if len(records) > h.settings.FeedLimit {
		records = records[:h.settings.FeedLimit]
	}

	base := baseURL(c)
	rss, err := h.generator.Run(feed.Channel{
		Title:       r.Name + " regulatory news",
		Link:        base,
		Description: fmt.Sprintf("Relevant regulatory and policy news for %s (%s)", r.Name, r.Zone),
		SelfLink:    base + c.Request.URL.Path,
		Generator:   "RegNews " + h.settings.Version,
	}, records)
	if err != nil {
		slog.Error("RSS generation error", "region", r.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Feed-Region", r.Name)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":            "ok",
		"timestamp":         h.now().In(time.Local).Format(time.RFC3339),
		"version":           h.settings.Version,
		"loaded_regions":    h.catalog.Count(),
		"classifier_models": len(h.settings.Models),
	}

	if count, err := h.store.Count(c.Request.Context()); err == nil {
		health["news"] = count
	} else {
		slog.Error("Database error", "operation", "count", "error", err)
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListRegions(c *gin.Context) {
	regions := h.catalog.Regions()

	out := make([]map[string]interface{}, 0, len(regions))
	for _, r := range regions {
		sources := make([]map[string]interface{}, 0, len(r.Sources))
		for _, src := range r.Sources {
			sources = append(sources, map[string]interface{}{
				"name":            src.Name,
				"url":             src.URL,
				"type":            src.Type,
				"extract_content": src.ExtractContent,
			})
		}
		out = append(out, map[string]interface{}{
			"name":    r.Name,
			"slug":    r.Slug,
			"zone":    r.Zone,
			"feed":    "/feeds/" + r.Slug,
			"sources": sources,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"regions":        out,
		"total":          len(out),
		"markets":        h.settings.Markets,
		"models":         h.settings.Models,
		"default_model":  h.settings.DefaultModel,
		"bootstrap_date": h.settings.Bootstrap.Format(time.DateOnly),
	})
}

func (h *Handler) APIListNews(c *gin.Context) {
	regions := c.QueryArray("region")
	if len(regions) == 0 {
		regions = h.catalog.Names()
	}

	start, err := parseDay(c.Query("start"), h.settings.Bootstrap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date", "details": err.Error()})
		return
	}
	end, err := parseDay(c.Query("end"), h.today())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date", "details": err.Error()})
		return
	}
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Start date must not be after end date"})
		return
	}

	sortBy := cmp.Or(c.Query("sort"), "date")
	if sortBy != "date" && sortBy != "score" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort, expected 'date' or 'score'"})
		return
	}

	records, err := h.store.Query(c.Request.Context(), database.Filter{
		Regions: regions,
		Start:   start,
		End:     end,
		Markets: c.QueryArray("market"),
	})
	if err != nil {
		slog.Error("Database error", "operation", "query", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.sortRecords(records, sortBy)

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	items := make([]NewsResponse, 0, len(records))
	for _, r := range records {
		items = append(items, toNewsResponse(r))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
		"start": start.Format(time.DateOnly),
		"end":   end.Format(time.DateOnly),
		"sort":  sortBy,
	})
}

// sortRecords orders by score or date, both descending. Undated records sort
// as if published on the bootstrap date.
func (h *Handler) sortRecords(records []news.Record, sortBy string) {
	byDate := func(a, b news.Record) int {
		if c := b.EffectiveDate(h.settings.Bootstrap).Compare(a.EffectiveDate(h.settings.Bootstrap)); c != 0 {
			return c
		}
		return strings.Compare(b.Time, a.Time)
	}

	if sortBy == "score" {
		slices.SortStableFunc(records, func(a, b news.Record) int {
			return cmp.Or(cmp.Compare(b.Score, a.Score), byDate(a, b))
		})
		return
	}
	slices.SortStableFunc(records, byDate)
}

func (h *Handler) APIRefresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	regions := req.Regions
	if len(regions) == 0 {
		regions = h.catalog.Names()
	}
	for _, name := range regions {
		if _, ok := h.catalog.Get(name); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown region", "region": name})
			return
		}
	}

	opts := tasks.RefreshOptions{UseModel: h.settings.UseModel, Model: req.Model}
	if req.UseModel != nil {
		opts.UseModel = *req.UseModel
	}
	if opts.Model != "" && !slices.Contains(h.settings.Models, opts.Model) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown model", "model": opts.Model, "models": h.settings.Models})
		return
	}

	if req.Start != "" {
		start, err := time.Parse(time.DateOnly, req.Start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date", "details": err.Error()})
			return
		}
		opts.Start = &start
	}
	if req.End != "" {
		end, err := time.Parse(time.DateOnly, req.End)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date", "details": err.Error()})
			return
		}
		opts.End = end
	}
	if opts.Start != nil && !opts.End.IsZero() && opts.Start.After(opts.End) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Start date must not be after end date"})
		return
	}

	task := h.refresh(regions, opts)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "regions", strings.Join(regions, ","), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Refresh task enqueued",
		"task": gin.H{
			"id":      task.GetID(),
			"type":    task.GetType(),
			"regions": regions,
			"status":  "/api/tasks/" + task.GetID(),
		},
	})
}

func (h *Handler) APIGetTask(c *gin.Context) {
	status, ok := h.scheduler.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) today() time.Time {
	return feed.DayOf(h.now().UTC())
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD")
	}
	return t, nil
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + c.Request.Host
}
