package aggregation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Aggregation names requested and read back.
const (
	GroupByZone         = "group_by_zone"
	GroupByCreatedTime  = "group_by_created_time"
	GroupByActivityTime = "group_by_activity_time"
	TotalSize           = "total_size"
)

var errMissingAggregation = errors.New("missing aggregation")

// Handler requests one aggregation tree and reshapes its result.
type Handler[R any] interface {
	Aggregations() map[string]any
	Process(aggs map[string]json.RawMessage) (R, error)
}

// SizeUsageHandler sums item sizes per zone and per calendar interval.
type SizeUsageHandler struct {
	From     time.Time
	To       time.Time
	TimeZone string
	Interval Interval
}

// Aggregations nests the created_time histogram with a size sum inside a
// zone terms aggregation.
func (h SizeUsageHandler) Aggregations() map[string]any {
	return map[string]any{
		GroupByZone: map[string]any{
			"terms": map[string]any{"field": "zone"},
			"aggs": map[string]any{
				GroupByCreatedTime: map[string]any{
					"date_histogram": dateHistogram("created_time", h.interval(), h.TimeZone),
					"aggs": map[string]any{
						TotalSize: map[string]any{"sum": map[string]any{"field": "size"}},
					},
				},
			},
		},
	}
}

type zoneBuckets struct {
	Buckets []struct {
		Key         json.Number `json:"key"`
		CreatedTime struct {
			Buckets map[string]struct {
				TotalSize struct {
					Value float64 `json:"value"`
				} `json:"total_size"`
			} `json:"buckets"`
		} `json:"group_by_created_time"`
	} `json:"buckets"`
}

// Process builds one dataset per zone present in the response, each aligned
// to GroupingKeys and zero where no documents fell. Without zones the
// result is empty.
func (h SizeUsageHandler) Process(aggs map[string]json.RawMessage) (domain.SizeUsage, error) {
	empty := domain.SizeUsage{Labels: []string{}, Datasets: []domain.SizeUsageDataset{}}

	var zones zoneBuckets
	if err := decode(aggs, GroupByZone, &zones); err != nil {
		return empty, err
	}
	if len(zones.Buckets) == 0 {
		return empty, nil
	}

	labels := GroupingKeys(h.From, h.To, h.interval())
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	datasets := make([]domain.SizeUsageDataset, 0, len(zones.Buckets))
	for _, zb := range zones.Buckets {
		zone, err := zb.Key.Int64()
		if err != nil {
			return empty, &domain.UpstreamError{Op: "size usage", Err: fmt.Errorf("zone key %q: %w", zb.Key, err)}
		}
		values := make([]int64, len(labels))
		for label, bucket := range zb.CreatedTime.Buckets {
			if i, ok := index[label]; ok {
				values[i] = int64(bucket.TotalSize.Value)
			}
		}
		datasets = append(datasets, domain.SizeUsageDataset{Label: int(zone), Values: values})
	}
	slices.SortFunc(datasets, func(a, b domain.SizeUsageDataset) int { return a.Label - b.Label })

	return domain.SizeUsage{Labels: labels, Datasets: datasets}, nil
}

func (h SizeUsageHandler) interval() Interval {
	if h.Interval == "" {
		return IntervalMonth
	}
	return h.Interval
}

// FileActivityHandler counts item activities per calendar interval.
type FileActivityHandler struct {
	From     time.Time
	To       time.Time
	TimeZone string
	Interval Interval
}

// Aggregations requests the activity_time histogram.
func (h FileActivityHandler) Aggregations() map[string]any {
	return map[string]any{
		GroupByActivityTime: map[string]any{
			"date_histogram": dateHistogram("activity_time", h.interval(), h.TimeZone),
		},
	}
}

type keyedCounts struct {
	Buckets map[string]struct {
		DocCount int64 `json:"doc_count"`
	} `json:"buckets"`
}

// Process zero-fills every label and overwrites it with the bucket count.
// Buckets outside the computed labels are kept as returned.
func (h FileActivityHandler) Process(aggs map[string]json.RawMessage) (map[string]int64, error) {
	var counts keyedCounts
	if err := decode(aggs, GroupByActivityTime, &counts); err != nil {
		return nil, err
	}

	labels := GroupingKeys(h.From, h.To, h.interval())
	out := make(map[string]int64, len(labels))
	for _, l := range labels {
		out[l] = 0
	}
	for label, bucket := range counts.Buckets {
		out[label] = bucket.DocCount
	}
	return out, nil
}

func (h FileActivityHandler) interval() Interval {
	if h.Interval == "" {
		return IntervalDay
	}
	return h.Interval
}

func decode(aggs map[string]json.RawMessage, name string, v any) error {
	raw, ok := aggs[name]
	if !ok || len(raw) == 0 {
		return &domain.UpstreamError{Op: "aggregation", Err: fmt.Errorf("%w: %s", errMissingAggregation, name)}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &domain.UpstreamError{Op: "aggregation", Err: fmt.Errorf("decode %s: %w", name, err)}
	}
	return nil
}
