package api

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

const defaultTimeZone = "+00:00"

var timeZonePattern = regexp.MustCompile(`^[-+][0-9]{2}:[0-9]{2}$`)

// Accepted layouts for time parameters. Values without an offset are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func optionalString(c *gin.Context, name string) *string {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func optionalInt(c *gin.Context, name string) (*int, error) {
	raw := optionalString(c, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an integer")
	}
	return &v, nil
}

// optionalSizeBound parses a byte-size bound. Zero means unbounded and
// yields nil; negative values are rejected.
func optionalSizeBound(c *gin.Context, name string) (*int64, error) {
	raw := optionalString(c, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil || v < 0 {
		return nil, domain.NewValidationError(name, "must be a non-negative integer")
	}
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}

func optionalBool(c *gin.Context, name string) (*bool, error) {
	raw := optionalString(c, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a boolean")
	}
	return &v, nil
}

func optionalTime(c *gin.Context, name string) (*time.Time, error) {
	raw := optionalString(c, name)
	if raw == nil {
		return nil, nil
	}
	t, err := parseTime(name, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requiredTime(c *gin.Context, name string) (time.Time, error) {
	raw := optionalString(c, name)
	if raw == nil {
		return time.Time{}, domain.NewValidationError(name, "is required")
	}
	return parseTime(name, *raw)
}

func parseTime(name, raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError(name, "must be an RFC 3339 timestamp or a date")
}

func intWithDefault(c *gin.Context, name string, def int) (int, error) {
	v, err := optionalInt(c, name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

func parsePagination(c *gin.Context) (query.Pagination, error) {
	page, err := intWithDefault(c, "page", query.DefaultPage)
	if err != nil {
		return query.Pagination{}, err
	}
	pageSize, err := intWithDefault(c, "page_size", query.DefaultPageSize)
	if err != nil {
		return query.Pagination{}, err
	}
	return query.NewPagination(page, pageSize)
}

func parseSorting(c *gin.Context, parseField func(string) (string, error)) (query.Sorting, error) {
	field, err := parseField(c.Query("sort_by"))
	if err != nil {
		return query.Sorting{}, err
	}
	order, err := query.ParseSortOrder(c.Query("sort_order"))
	if err != nil {
		return query.Sorting{}, err
	}
	return query.Sorting{Field: field, Order: order}, nil
}

// parseTimeZone validates the time_zone offset and returns it together
// with the matching fixed location.
func parseTimeZone(c *gin.Context) (string, *time.Location, error) {
	tz := c.DefaultQuery("time_zone", defaultTimeZone)
	if !timeZonePattern.MatchString(tz) {
		return "", nil, domain.NewValidationError("time_zone", fmt.Sprintf("must match %s", timeZonePattern))
	}

	hours, _ := strconv.Atoi(tz[1:3])
	minutes, _ := strconv.Atoi(tz[4:6])
	offset := hours*60*60 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return tz, time.FixedZone(tz, offset), nil
}

type timeWindow struct {
	From     time.Time
	To       time.Time
	TimeZone string
}

func parseTimeWindow(c *gin.Context) (timeWindow, error) {
	from, err := requiredTime(c, "from")
	if err != nil {
		return timeWindow{}, err
	}
	to, err := requiredTime(c, "to")
	if err != nil {
		return timeWindow{}, err
	}
	tz, _, err := parseTimeZone(c)
	if err != nil {
		return timeWindow{}, err
	}
	return timeWindow{From: from, To: to, TimeZone: tz}, nil
}
