// Package domain holds the documents served by metadata-search, the
// container and activity enumerations, and the error taxonomy shared by
// every layer.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Index names used when configuration leaves them unset.
const (
	IndexMetadataItems     = "metadata-items"
	IndexItemActivities    = "items-activity-logs"
	IndexDatasetActivities = "dataset-activity-logs"
	IndexActivityLogs      = "activity-logs"
)

// ContainerType is the kind of container owning a document.
type ContainerType string

const (
	ContainerTypeProject ContainerType = "project"
	ContainerTypeDataset ContainerType = "dataset"
)

// ParseContainerType accepts project or dataset.
func ParseContainerType(s string) (ContainerType, error) {
	switch ct := ContainerType(s); ct {
	case ContainerTypeProject, ContainerTypeDataset:
		return ct, nil
	default:
		return "", NewValidationError("container_type", fmt.Sprintf("unsupported value %q", s))
	}
}

// MetadataItemType separates files from folders.
type MetadataItemType string

const (
	MetadataItemTypeFile   MetadataItemType = "file"
	MetadataItemTypeFolder MetadataItemType = "folder"
)

// ItemActivityType is the kind of file transfer or change recorded.
type ItemActivityType string

const (
	ItemActivityDownload ItemActivityType = "download"
	ItemActivityUpload   ItemActivityType = "upload"
	ItemActivityDelete   ItemActivityType = "delete"
	ItemActivityCopy     ItemActivityType = "copy"
)

// ParseItemActivityType accepts download, upload, delete or copy.
func ParseItemActivityType(s string) (ItemActivityType, error) {
	switch t := ItemActivityType(s); t {
	case ItemActivityDownload, ItemActivityUpload, ItemActivityDelete, ItemActivityCopy:
		return t, nil
	default:
		return "", NewValidationError("type", fmt.Sprintf("unsupported activity type %q", s))
	}
}

var errMissingField = errors.New("required field missing")

func missing(field string) error {
	return &ValidationError{Field: field, Message: "is required", Err: errMissingField}
}

// MetadataItemAttribute names an attribute template attached to an item.
type MetadataItemAttribute struct {
	Name string `json:"name"`
}

// MetadataItem is a file or folder document in the metadata-items index.
type MetadataItem struct {
	PK              string                  `json:"pk,omitempty"`
	ID              string                  `json:"id"`
	ParentPath      *string                 `json:"parent_path"`
	Type            MetadataItemType        `json:"type"`
	Zone            int                     `json:"zone"`
	Name            string                  `json:"name"`
	Size            int64                   `json:"size"`
	Owner           string                  `json:"owner"`
	ContainerCode   string                  `json:"container_code"`
	ContainerType   ContainerType           `json:"container_type"`
	CreatedTime     time.Time               `json:"created_time"`
	LastUpdatedTime time.Time               `json:"last_updated_time"`
	Tags            []string                `json:"tags"`
	TemplateName    string                  `json:"template_name"`
	Attributes      []MetadataItemAttribute `json:"attributes"`
	Archived        bool                    `json:"archived"`
}

// SetPK sets the engine-assigned key.
func (m *MetadataItem) SetPK(pk string) { m.PK = pk }

// Validate checks the fields a stored item must carry.
func (m *MetadataItem) Validate() error {
	switch {
	case m.ID == "":
		return missing("id")
	case m.Name == "":
		return missing("name")
	case m.ContainerCode == "":
		return missing("container_code")
	case m.CreatedTime.IsZero():
		return missing("created_time")
	}
	if _, err := ParseContainerType(string(m.ContainerType)); err != nil {
		return err
	}
	return nil
}

// ItemActivity is a transfer or change event on a single item.
type ItemActivity struct {
	PK            string           `json:"pk,omitempty"`
	ID            string           `json:"id"`
	ActivityType  ItemActivityType `json:"activity_type"`
	ActivityTime  time.Time        `json:"activity_time"`
	ContainerCode string           `json:"container_code"`
	ContainerType ContainerType    `json:"container_type"`
}

// SetPK sets the engine-assigned key.
func (a *ItemActivity) SetPK(pk string) { a.PK = pk }

// Validate checks the fields a stored activity must carry.
func (a *ItemActivity) Validate() error {
	if a.ActivityTime.IsZero() {
		return missing("activity_time")
	}
	if a.ContainerCode == "" {
		return missing("container_code")
	}
	if _, err := ParseItemActivityType(string(a.ActivityType)); err != nil {
		return err
	}
	if _, err := ParseContainerType(string(a.ContainerType)); err != nil {
		return err
	}
	return nil
}

// DatasetActivityChange is one property change inside a dataset activity.
type DatasetActivityChange struct {
	Property string `json:"property"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// DatasetActivity is an audit entry for a dataset.
type DatasetActivity struct {
	PK            string                  `json:"pk,omitempty"`
	ActivityType  string                  `json:"activity_type"`
	ActivityTime  time.Time               `json:"activity_time"`
	ContainerCode string                  `json:"container_code"`
	Version       *string                 `json:"version"`
	TargetName    *string                 `json:"target_name"`
	User          string                  `json:"user"`
	Changes       []DatasetActivityChange `json:"changes"`
}

// SetPK sets the engine-assigned key.
func (d *DatasetActivity) SetPK(pk string) { d.PK = pk }

// Validate checks the fields a stored dataset activity must carry.
func (d *DatasetActivity) Validate() error {
	switch {
	case d.ActivityType == "":
		return missing("activity_type")
	case d.ActivityTime.IsZero():
		return missing("activity_time")
	case d.ContainerCode == "":
		return missing("container_code")
	}
	return nil
}
