// Package api serves the metadata-search HTTP endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/aggregation"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/cache"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/crud"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/eshelper"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

// Activity log defaults.
const (
	defaultActivityLogPage     = 0
	defaultActivityLogPageSize = 10
	defaultActivityLogSortType = "desc"
)

// MetadataItemStore is the metadata item repository as used by the handlers.
type MetadataItemStore interface {
	List(ctx context.Context, p query.Pagination, s query.Sorting, f query.Filter) (*crud.MetadataItemPage, error)
	ProjectSizeUsage(ctx context.Context, f query.ProjectSizeUsageFilter, tz string, i aggregation.Interval) (domain.SizeUsage, error)
	ProjectStatistics(ctx context.Context, projectCode string) (domain.SizeStatistics, error)
}

// ItemActivityStore is the item activity repository as used by the handlers.
type ItemActivityStore interface {
	ProjectFileActivity(ctx context.Context, f query.ProjectFileActivityFilter, tz string, i aggregation.Interval) (map[string]int64, error)
	ProjectTransferStatistics(ctx context.Context, projectCode string, now time.Time, loc *time.Location) (domain.TransferStatistics, error)
}

// DatasetActivityStore lists dataset activities.
type DatasetActivityStore interface {
	List(
		ctx context.Context, p query.Pagination, s query.Sorting, f query.Filter, opts ...crud.ListOption,
	) (*query.Page[domain.DatasetActivity], *elasticsearch.SearchResult, error)
}

// ActivityLogSearcher runs clause-based activity log searches.
type ActivityLogSearcher interface {
	Search(
		ctx context.Context, index string, clauses []eshelper.Clause, page, pageSize int, sortBy, sortType string,
	) (*eshelper.Result, error)
}

// Handler holds HTTP request handlers
type Handler struct {
	items             MetadataItemStore
	itemActivities    ItemActivityStore
	datasetActivities DatasetActivityStore
	activityLogs      ActivityLogSearcher
	activityLogsIndex string
	cache             *cache.Cache
	now               func() time.Time
	logger            logger.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithCache memoizes the project statistics endpoints.
func WithCache(c *cache.Cache) HandlerOption {
	return func(h *Handler) { h.cache = c }
}

// WithClock replaces time.Now for the statistics endpoint.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a new handler instance
func NewHandler(
	items MetadataItemStore,
	itemActivities ItemActivityStore,
	datasetActivities DatasetActivityStore,
	activityLogs ActivityLogSearcher,
	activityLogsIndex string,
	log logger.Logger,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		items:             items,
		itemActivities:    itemActivities,
		datasetActivities: datasetActivities,
		activityLogs:      activityLogs,
		activityLogsIndex: activityLogsIndex,
		now:               time.Now,
		logger:            log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListResponse is the envelope of paginated lists.
type ListResponse[T any] struct {
	NumOfPages int64 `json:"num_of_pages"`
	Page       int   `json:"page"`
	Total      int64 `json:"total"`
	Result     []T   `json:"result"`
}

func listResponse[T any](page *query.Page[T]) ListResponse[T] {
	return ListResponse[T]{
		NumOfPages: page.TotalPages(),
		Page:       page.Number(),
		Total:      page.Count,
		Result:     page.Entries,
	}
}

// MetadataItemListResponse adds per-zone totals to the list envelope.
type MetadataItemListResponse struct {
	ListResponse[domain.MetadataItem]
	TotalPerZone map[int]int64 `json:"total_per_zone"`
}

// ListMetadataItems handles GET /metadata-items.
func (h *Handler) ListMetadataItems(c *gin.Context) {
	filter, err := parseMetadataItemFilter(c)
	if err != nil {
		h.respondError(c, "List metadata items", err)
		return
	}
	sorting, err := parseSorting(c, query.ParseMetadataItemSortField)
	if err != nil {
		h.respondError(c, "List metadata items", err)
		return
	}
	pagination, err := parsePagination(c)
	if err != nil {
		h.respondError(c, "List metadata items", err)
		return
	}

	page, err := h.items.List(c.Request.Context(), pagination, sorting, filter)
	if err != nil {
		h.respondError(c, "List metadata items", err)
		return
	}

	c.JSON(http.StatusOK, MetadataItemListResponse{
		ListResponse: listResponse(page.Page),
		TotalPerZone: page.TotalPerZone,
	})
}

func parseMetadataItemFilter(c *gin.Context) (query.MetadataItemFilter, error) {
	var (
		f   query.MetadataItemFilter
		err error
	)

	f.Name = optionalString(c, "name")
	f.Owner = optionalString(c, "owner")
	if f.Zone, err = optionalInt(c, "zone"); err != nil {
		return f, err
	}
	f.ContainerCode = optionalString(c, "container_code")
	if raw := optionalString(c, "container_type"); raw != nil {
		ct, parseErr := domain.ParseContainerType(*raw)
		if parseErr != nil {
			return f, parseErr
		}
		f.ContainerType = &ct
	}
	if f.CreatedTimeStart, err = optionalTime(c, "created_time_start"); err != nil {
		return f, err
	}
	if f.CreatedTimeEnd, err = optionalTime(c, "created_time_end"); err != nil {
		return f, err
	}
	if f.SizeGTE, err = optionalSizeBound(c, "size_gte"); err != nil {
		return f, err
	}
	if f.SizeLTE, err = optionalSizeBound(c, "size_lte"); err != nil {
		return f, err
	}
	f.IsArchived, err = optionalBool(c, "is_archived")
	return f, err
}

// ListDatasetActivities handles GET /dataset-activity-logs.
func (h *Handler) ListDatasetActivities(c *gin.Context) {
	filter, err := parseDatasetActivityFilter(c)
	if err != nil {
		h.respondError(c, "List dataset activities", err)
		return
	}
	sorting, err := parseSorting(c, query.ParseDatasetActivitySortField)
	if err != nil {
		h.respondError(c, "List dataset activities", err)
		return
	}
	pagination, err := parsePagination(c)
	if err != nil {
		h.respondError(c, "List dataset activities", err)
		return
	}

	page, _, err := h.datasetActivities.List(c.Request.Context(), pagination, sorting, filter)
	if err != nil {
		h.respondError(c, "List dataset activities", err)
		return
	}

	c.JSON(http.StatusOK, listResponse(page))
}

func parseDatasetActivityFilter(c *gin.Context) (query.DatasetActivityFilter, error) {
	var (
		f   query.DatasetActivityFilter
		err error
	)

	f.ActivityType = optionalString(c, "activity_type")
	if f.ActivityTimeStart, err = optionalTime(c, "activity_time_start"); err != nil {
		return f, err
	}
	if f.ActivityTimeEnd, err = optionalTime(c, "activity_time_end"); err != nil {
		return f, err
	}
	f.ContainerCode = optionalString(c, "container_code")
	f.Version = optionalString(c, "version")
	f.TargetName = optionalString(c, "target_name")
	f.User = optionalString(c, "user")
	return f, nil
}

// SizeResponse wraps the project size series.
type SizeResponse struct {
	Data domain.SizeUsage `json:"data"`
}

// ProjectSize handles GET /project-files/:code/size.
func (h *Handler) ProjectSize(c *gin.Context) {
	code := c.Param("code")

	window, err := parseTimeWindow(c)
	if err != nil {
		h.respondError(c, "Project size", err)
		return
	}
	interval, err := aggregation.ParseInterval(c.Query("group_by"), aggregation.IntervalMonth)
	if err != nil {
		h.respondError(c, "Project size", err)
		return
	}

	filter := query.ProjectSizeUsageFilter{ProjectCode: code, From: window.From, To: window.To}
	key := cache.Key("size", code, formatKeyTime(window.From), formatKeyTime(window.To), window.TimeZone, string(interval))

	usage, err := cache.Fetch(c.Request.Context(), h.windowCache(window), key, func(ctx context.Context) (domain.SizeUsage, error) {
		return h.items.ProjectSizeUsage(ctx, filter, window.TimeZone, interval)
	})
	if err != nil {
		h.respondError(c, "Project size", err)
		return
	}

	c.JSON(http.StatusOK, SizeResponse{Data: usage})
}

// FilesStatistics totals the files of a project.
type FilesStatistics struct {
	TotalCount   int64         `json:"total_count"`
	TotalSize    int64         `json:"total_size"`
	TotalPerZone map[int]int64 `json:"total_per_zone"`
}

// TodayActivity counts the current day's transfers.
type TodayActivity struct {
	TodayUploaded   int64 `json:"today_uploaded"`
	TodayDownloaded int64 `json:"today_downloaded"`
}

// StatisticsResponse is the project statistics payload.
type StatisticsResponse struct {
	Files    FilesStatistics `json:"files"`
	Activity TodayActivity   `json:"activity"`
}

// ProjectStatistics handles GET /project-files/:code/statistics.
func (h *Handler) ProjectStatistics(c *gin.Context) {
	code := c.Param("code")

	tz, loc, err := parseTimeZone(c)
	if err != nil {
		h.respondError(c, "Project statistics", err)
		return
	}

	now := h.now().UTC()
	key := cache.Key("statistics", code, tz, now.In(loc).Format(time.DateOnly))

	resp, err := cache.Fetch(c.Request.Context(), h.cache, key, func(ctx context.Context) (StatisticsResponse, error) {
		files, filesErr := h.items.ProjectStatistics(ctx, code)
		if filesErr != nil {
			return StatisticsResponse{}, filesErr
		}
		transfers, transferErr := h.itemActivities.ProjectTransferStatistics(ctx, code, now, loc)
		if transferErr != nil {
			return StatisticsResponse{}, transferErr
		}
		return StatisticsResponse{
			Files: FilesStatistics{
				TotalCount:   files.Count,
				TotalSize:    files.Size,
				TotalPerZone: files.CountByZone,
			},
			Activity: TodayActivity{
				TodayUploaded:   transfers.Uploaded,
				TodayDownloaded: transfers.Downloaded,
			},
		}, nil
	})
	if err != nil {
		h.respondError(c, "Project statistics", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ActivityResponse maps interval labels to activity counts.
type ActivityResponse struct {
	Data map[string]int64 `json:"data"`
}

// ProjectActivity handles GET /project-files/:code/activity.
func (h *Handler) ProjectActivity(c *gin.Context) {
	code := c.Param("code")

	window, err := parseTimeWindow(c)
	if err != nil {
		h.respondError(c, "Project activity", err)
		return
	}
	interval, err := aggregation.ParseInterval(c.Query("group_by"), aggregation.IntervalDay)
	if err != nil {
		h.respondError(c, "Project activity", err)
		return
	}
	activityType, err := domain.ParseItemActivityType(c.DefaultQuery("type", string(domain.ItemActivityDownload)))
	if err != nil {
		h.respondError(c, "Project activity", err)
		return
	}

	filter := query.ProjectFileActivityFilter{
		ProjectCode:  code,
		ActivityType: activityType,
		From:         window.From,
		To:           window.To,
	}
	key := cache.Key("activity", code, string(activityType),
		formatKeyTime(window.From), formatKeyTime(window.To), window.TimeZone, string(interval))

	counts, err := cache.Fetch(c.Request.Context(), h.windowCache(window), key, func(ctx context.Context) (map[string]int64, error) {
		return h.itemActivities.ProjectFileActivity(ctx, filter, window.TimeZone, interval)
	})
	if err != nil {
		h.respondError(c, "Project activity", err)
		return
	}

	c.JSON(http.StatusOK, ActivityResponse{Data: counts})
}

// windowCache returns the cache for windows that ended before now. Windows
// still open can gain documents, so they always hit the engine.
func (h *Handler) windowCache(w timeWindow) *cache.Cache {
	if !w.To.Before(h.now()) {
		return nil
	}
	return h.cache
}

func formatKeyTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ActivityLogResponse is the activity log search payload.
type ActivityLogResponse struct {
	Code   int                 `json:"code"`
	Result []elasticsearch.Hit `json:"result"`
	Total  int64               `json:"total"`
}

// QueryActivityLogs handles GET /activity-logs.
func (h *Handler) QueryActivityLogs(c *gin.Context) {
	raw, ok := c.GetQuery("query")
	if !ok {
		h.respondError(c, "Query activity logs", domain.NewValidationError("query", "is required"))
		return
	}
	clauses, err := eshelper.ParseActivityLogQuery(raw)
	if err != nil {
		h.respondError(c, "Query activity logs", err)
		return
	}

	page, err := intWithDefault(c, "page", defaultActivityLogPage)
	if err != nil {
		h.respondError(c, "Query activity logs", err)
		return
	}
	pageSize, err := intWithDefault(c, "page_size", defaultActivityLogPageSize)
	if err != nil {
		h.respondError(c, "Query activity logs", err)
		return
	}
	if page < 0 || pageSize < 1 {
		h.respondError(c, "Query activity logs",
			domain.NewValidationError("page", "page must be at least 0 and page_size at least 1"))
		return
	}
	sortBy := c.DefaultQuery("sort_by", eshelper.CreateTimestampField)
	sortType := c.DefaultQuery("sort_type", defaultActivityLogSortType)

	logger.FromContextOr(c.Request.Context(), h.logger).Info("Activity logs query",
		logger.String("query", raw),
		logger.Int("page", page),
		logger.Int("page_size", pageSize),
	)

	res, err := h.activityLogs.Search(c.Request.Context(), h.activityLogsIndex, clauses, page, pageSize, sortBy, sortType)
	if err != nil {
		h.respondError(c, "Query activity logs", err)
		return
	}

	c.JSON(http.StatusOK, ActivityLogResponse{Code: http.StatusOK, Result: res.Hits, Total: res.Total})
}
