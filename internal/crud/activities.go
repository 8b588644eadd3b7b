package crud

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/aggregation"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

const activityTypesAgg = "activity_types"

// ItemActivities serves the items-activity-logs index.
type ItemActivities struct {
	*Repository[domain.ItemActivity, *domain.ItemActivity]
}

// NewItemActivities creates the item activity repository.
func NewItemActivities(engine elasticsearch.SearchEngine, index string, log logger.Logger) *ItemActivities {
	return &ItemActivities{Repository: NewRepository[domain.ItemActivity](engine, index, log)}
}

// ProjectFileActivity counts a project's activities of one type per interval.
func (a *ItemActivities) ProjectFileActivity(
	ctx context.Context,
	filter query.ProjectFileActivityFilter,
	timeZone string,
	interval aggregation.Interval,
) (map[string]int64, error) {
	h := aggregation.FileActivityHandler{From: filter.From, To: filter.To, TimeZone: timeZone, Interval: interval}
	return RunHandler(ctx, a.Repository, filter, h)
}

// ProjectTransferStatistics counts uploads and downloads of a project on
// the calendar day containing now in the loc offset.
func (a *ItemActivities) ProjectTransferStatistics(
	ctx context.Context,
	projectCode string,
	now time.Time,
	loc *time.Location,
) (domain.TransferStatistics, error) {
	day := now.In(loc).Format(time.DateOnly)

	b := query.NewBuilder().
		MatchTerm("container_type", string(domain.ContainerTypeProject)).
		MatchTerm("container_code", projectCode).
		MatchRange("activity_time", query.Bounds{GTE: day, LTE: day}).
		MatchTerms("activity_type", []any{string(domain.ItemActivityUpload), string(domain.ItemActivityDownload)})

	aggs, _, err := a.Aggregate(ctx, b, map[string]any{
		activityTypesAgg: map[string]any{"terms": map[string]any{"field": "activity_type.keyword"}},
	})
	if err != nil {
		return domain.TransferStatistics{}, err
	}

	var terms struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int64  `json:"doc_count"`
		} `json:"buckets"`
	}
	if err = decodeAgg(aggs, activityTypesAgg, &terms); err != nil {
		return domain.TransferStatistics{}, err
	}

	var stats domain.TransferStatistics
	for _, bucket := range terms.Buckets {
		switch domain.ItemActivityType(bucket.Key) {
		case domain.ItemActivityUpload:
			stats.Uploaded += bucket.DocCount
		case domain.ItemActivityDownload:
			stats.Downloaded += bucket.DocCount
		}
	}
	return stats, nil
}

// DatasetActivities serves the dataset-activity-logs index.
type DatasetActivities struct {
	*Repository[domain.DatasetActivity, *domain.DatasetActivity]
}

// NewDatasetActivities creates the dataset activity repository.
func NewDatasetActivities(engine elasticsearch.SearchEngine, index string, log logger.Logger) *DatasetActivities {
	return &DatasetActivities{Repository: NewRepository[domain.DatasetActivity](engine, index, log)}
}
