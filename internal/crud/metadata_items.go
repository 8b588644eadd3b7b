package crud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/aggregation"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

const (
	totalPerZoneAgg = "total_per_zone"
	sizeAgg         = "size"
	zoneAgg         = "zone"
)

// MetadataItemPage adds the per-zone match counts to a page.
type MetadataItemPage struct {
	*query.Page[domain.MetadataItem]
	TotalPerZone map[int]int64
}

// MetadataItems serves the metadata-items index.
type MetadataItems struct {
	*Repository[domain.MetadataItem, *domain.MetadataItem]
}

// NewMetadataItems creates the metadata item repository.
func NewMetadataItems(engine elasticsearch.SearchEngine, index string, log logger.Logger) *MetadataItems {
	return &MetadataItems{Repository: NewRepository[domain.MetadataItem](engine, index, log)}
}

func groupByZone() map[string]any {
	return map[string]any{"terms": map[string]any{"field": "zone"}}
}

// List is Repository.List plus a count of matches per zone.
func (m *MetadataItems) List(
	ctx context.Context,
	pagination query.Pagination,
	sorting query.Sorting,
	filter query.Filter,
) (*MetadataItemPage, error) {
	page, res, err := m.Repository.List(ctx, pagination, sorting, filter,
		WithAggregations(map[string]any{totalPerZoneAgg: groupByZone()}))
	if err != nil {
		return nil, err
	}

	perZone, err := zoneCounts(res.Aggregations, totalPerZoneAgg)
	if err != nil {
		return nil, err
	}
	return &MetadataItemPage{Page: page, TotalPerZone: perZone}, nil
}

// ProjectSizeUsage sums item sizes of a project per zone and interval.
func (m *MetadataItems) ProjectSizeUsage(
	ctx context.Context,
	filter query.ProjectSizeUsageFilter,
	timeZone string,
	interval aggregation.Interval,
) (domain.SizeUsage, error) {
	h := aggregation.SizeUsageHandler{From: filter.From, To: filter.To, TimeZone: timeZone, Interval: interval}
	return RunHandler(ctx, m.Repository, filter, h)
}

// ProjectStatistics totals the files of a project.
func (m *MetadataItems) ProjectStatistics(ctx context.Context, projectCode string) (domain.SizeStatistics, error) {
	b := query.NewBuilder().
		MatchTerm("type", string(domain.MetadataItemTypeFile)).
		MatchTerm("container_type", string(domain.ContainerTypeProject)).
		MatchTerm("container_code", projectCode)

	aggs, count, err := m.Aggregate(ctx, b, map[string]any{
		sizeAgg: map[string]any{"sum": map[string]any{"field": "size"}},
		zoneAgg: groupByZone(),
	})
	if err != nil {
		return domain.SizeStatistics{}, err
	}

	var size struct {
		Value float64 `json:"value"`
	}
	if err = decodeAgg(aggs, sizeAgg, &size); err != nil {
		return domain.SizeStatistics{}, err
	}
	byZone, err := zoneCounts(aggs, zoneAgg)
	if err != nil {
		return domain.SizeStatistics{}, err
	}

	return domain.SizeStatistics{Count: count, Size: int64(size.Value), CountByZone: byZone}, nil
}

func zoneCounts(aggs map[string]json.RawMessage, name string) (map[int]int64, error) {
	var terms struct {
		Buckets []struct {
			Key      int   `json:"key"`
			DocCount int64 `json:"doc_count"`
		} `json:"buckets"`
	}
	if err := decodeAgg(aggs, name, &terms); err != nil {
		return nil, err
	}

	out := make(map[int]int64, len(terms.Buckets))
	for _, b := range terms.Buckets {
		out[b.Key] = b.DocCount
	}
	return out, nil
}

func decodeAgg(aggs map[string]json.RawMessage, name string, v any) error {
	raw, ok := aggs[name]
	if !ok {
		return &domain.UpstreamError{Op: elasticsearch.OpSearch, Err: fmt.Errorf("response has no %q aggregation", name)}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &domain.UpstreamError{Op: elasticsearch.OpSearch, Err: fmt.Errorf("decode %q aggregation: %w", name, err)}
	}
	return nil
}
