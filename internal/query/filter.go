package query

import (
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Filter adds its constraints to a Builder. Callers apply a filter only
// when it is Active.
type Filter interface {
	Active() bool
	Apply(b *Builder)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// MetadataItemFilter holds the optional metadata item constraints.
type MetadataItemFilter struct {
	Name             *string
	Owner            *string
	Zone             *int
	ContainerCode    *string
	ContainerType    *domain.ContainerType
	CreatedTimeStart *time.Time
	CreatedTimeEnd   *time.Time
	SizeGTE          *int64
	SizeLTE          *int64
	IsArchived       *bool
}

// Active reports whether any field is set.
func (f MetadataItemFilter) Active() bool {
	return f.Name != nil || f.Owner != nil || f.Zone != nil || f.ContainerCode != nil ||
		f.ContainerType != nil || f.CreatedTimeStart != nil || f.CreatedTimeEnd != nil ||
		f.SizeGTE != nil || f.SizeLTE != nil || f.IsArchived != nil
}

// Apply adds one clause per set field.
func (f MetadataItemFilter) Apply(b *Builder) {
	if f.Name != nil {
		b.MatchKeyword("name", *f.Name)
	}
	if f.Owner != nil {
		b.MatchKeyword("owner", *f.Owner)
	}
	if f.Zone != nil {
		b.MatchTerm("zone", *f.Zone)
	}
	if f.ContainerCode != nil {
		b.MatchTerm("container_code", *f.ContainerCode)
	}
	if f.ContainerType != nil {
		b.MatchTerm("container_type", string(*f.ContainerType))
	}
	if f.CreatedTimeStart != nil {
		b.MatchRange("created_time", Bounds{GTE: formatTime(*f.CreatedTimeStart)})
	}
	if f.CreatedTimeEnd != nil {
		b.MatchRange("created_time", Bounds{LTE: formatTime(*f.CreatedTimeEnd)})
	}
	if f.SizeGTE != nil {
		b.MatchRange("size", Bounds{GTE: *f.SizeGTE})
	}
	if f.SizeLTE != nil {
		b.MatchRange("size", Bounds{LTE: *f.SizeLTE})
	}
	if f.IsArchived != nil {
		b.MatchTerm("archived", *f.IsArchived)
	}
}

// DatasetActivityFilter holds the optional dataset activity constraints.
type DatasetActivityFilter struct {
	ActivityType      *string
	ActivityTimeStart *time.Time
	ActivityTimeEnd   *time.Time
	ContainerCode     *string
	Version           *string
	TargetName        *string
	User              *string
}

// Active reports whether any field is set.
func (f DatasetActivityFilter) Active() bool {
	return f.ActivityType != nil || f.ActivityTimeStart != nil || f.ActivityTimeEnd != nil ||
		f.ContainerCode != nil || f.Version != nil || f.TargetName != nil || f.User != nil
}

// Apply adds one clause per set field.
func (f DatasetActivityFilter) Apply(b *Builder) {
	if f.ActivityType != nil {
		b.MatchTerm("activity_type", *f.ActivityType)
	}
	if f.ActivityTimeStart != nil {
		b.MatchRange("activity_time", Bounds{GTE: formatTime(*f.ActivityTimeStart)})
	}
	if f.ActivityTimeEnd != nil {
		b.MatchRange("activity_time", Bounds{LTE: formatTime(*f.ActivityTimeEnd)})
	}
	if f.ContainerCode != nil {
		b.MatchTerm("container_code", *f.ContainerCode)
	}
	if f.Version != nil {
		b.MatchKeyword("version", *f.Version)
	}
	if f.TargetName != nil {
		b.MatchKeyword("target_name", *f.TargetName)
	}
	if f.User != nil {
		b.MatchKeyword("user", *f.User)
	}
}

// ProjectSizeUsageFilter scopes metadata items to one project and the
// half-open window [From, To) on created_time.
type ProjectSizeUsageFilter struct {
	ProjectCode string
	From        time.Time
	To          time.Time
}

// Active is always true.
func (ProjectSizeUsageFilter) Active() bool { return true }

// Apply adds the project and window clauses.
func (f ProjectSizeUsageFilter) Apply(b *Builder) {
	b.MatchTerm("container_type", string(domain.ContainerTypeProject))
	b.MatchTerm("container_code", f.ProjectCode)
	b.MatchRange("created_time", Bounds{GTE: formatTime(f.From), LT: formatTime(f.To)})
}

// ProjectFileActivityFilter scopes item activities of one type to one
// project and the half-open window [From, To) on activity_time.
type ProjectFileActivityFilter struct {
	ProjectCode  string
	ActivityType domain.ItemActivityType
	From         time.Time
	To           time.Time
}

// Active is always true.
func (ProjectFileActivityFilter) Active() bool { return true }

// Apply adds the project, type and window clauses.
func (f ProjectFileActivityFilter) Apply(b *Builder) {
	b.MatchTerm("container_type", string(domain.ContainerTypeProject))
	b.MatchTerm("container_code", f.ProjectCode)
	b.MatchTerm("activity_type", string(f.ActivityType))
	b.MatchRange("activity_time", Bounds{GTE: formatTime(f.From), LT: formatTime(f.To)})
}
