package crud_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/crud"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

func sampleItem(i int) domain.MetadataItem {
	created := time.Date(2023, 1, i+1, 10, 0, 0, 0, time.UTC)
	parent := "admin/folder"
	return domain.MetadataItem{
		ID:              fmt.Sprintf("id-%d", i),
		ParentPath:      &parent,
		Type:            domain.MetadataItemTypeFile,
		Zone:            i % 2,
		Name:            fmt.Sprintf("file-%d.txt", i),
		Size:            int64(100 * (i + 1)),
		Owner:           "admin",
		ContainerCode:   "project1",
		ContainerType:   domain.ContainerTypeProject,
		CreatedTime:     created,
		LastUpdatedTime: created,
		Tags:            []string{"raw"},
		TemplateName:    "default",
		Attributes:      []domain.MetadataItemAttribute{{Name: "colour"}},
	}
}

func TestRepository_CreateRoundTrip(t *testing.T) {
	t.Parallel()

	engine := newMemEngine()
	repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())

	want := sampleItem(0)
	created, err := repo.Create(context.Background(), want)
	require.NoError(t, err)

	assert.Len(t, created.PK, 20)
	assert.NotEqual(t, want.ID, created.PK)

	fetched, err := repo.RetrieveByPK(context.Background(), created.PK)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	want.PK = created.PK
	assert.Equal(t, want, fetched)
}

func TestRepository_CreateDoesNotStorePK(t *testing.T) {
	t.Parallel()

	engine := newMemEngine()
	repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())

	created, err := repo.Create(context.Background(), sampleItem(0))
	require.NoError(t, err)

	stored := engine.docs[domain.IndexMetadataItems]
	require.Len(t, stored, 1)
	assert.Equal(t, created.PK, stored[0].ID)

	var source map[string]any
	require.NoError(t, json.Unmarshal(stored[0].Source, &source))
	assert.NotContains(t, source, "pk")
}

func TestRepository_CreateNotVisible(t *testing.T) {
	t.Parallel()

	engine := newMemEngine()
	engine.dropWrites = true
	repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())

	_, err := repo.Create(context.Background(), sampleItem(0))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_RetrieveMissing(t *testing.T) {
	t.Parallel()

	repo := crud.NewRepository[domain.ItemActivity](newMemEngine(), domain.IndexItemActivities, logger.NewNop())

	_, err := repo.RetrieveByPK(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_ListPaginates(t *testing.T) {
	t.Parallel()

	engine := newMemEngine()
	repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())
	for i := range 4 {
		_, err := repo.Create(context.Background(), sampleItem(i))
		require.NoError(t, err)
	}

	pagination, err := query.NewPagination(2, 3)
	require.NoError(t, err)

	page, _, err := repo.List(context.Background(), pagination, query.Sorting{}, nil)
	require.NoError(t, err)

	assert.Len(t, page.Entries, 1)
	assert.Equal(t, int64(4), page.Count)
	assert.Equal(t, 2, page.Number())
	assert.Equal(t, int64(2), page.TotalPages())
	assert.Equal(t, "id-3", page.Entries[0].ID)

	assert.Equal(t, 3, engine.lastBody["from"])
	assert.Equal(t, 3, engine.lastBody["size"])
	assert.NotContains(t, engine.lastBody, "sort")
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, engine.lastBody["query"])
}

func TestRepository_ListAppliesActiveFilterAndSort(t *testing.T) {
	t.Parallel()

	engine := newMemEngine()
	repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())

	owner := "admin"
	_, _, err := repo.List(context.Background(), query.DefaultPagination(),
		query.Sorting{Field: "size", Order: query.SortDesc},
		query.MetadataItemFilter{Owner: &owner},
		crud.WithAggregations(map[string]any{"x": map[string]any{}}),
	)
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{"size": "desc"}}, engine.lastBody["sort"])
	assert.Equal(t, map[string]any{"bool": map[string]any{"must": []any{
		map[string]any{"match": map[string]any{"owner": "admin"}},
	}}}, engine.lastBody["query"])
	assert.Contains(t, engine.lastBody, "aggs")

	_, _, err = repo.List(context.Background(), query.DefaultPagination(), query.Sorting{}, query.MetadataItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, engine.lastBody["query"])
}

func TestRepository_ParseFailuresAreFatal(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"wrong type":    `{"id": "1", "name": "a", "size": "big", "container_code": "p", "container_type": "project", "created_time": "2023-01-01T00:00:00Z"}`,
		"missing field": `{"id": "1", "size": 1, "container_code": "p", "container_type": "project", "created_time": "2023-01-01T00:00:00Z"}`,
		"bad enum":      `{"id": "1", "name": "a", "container_code": "p", "container_type": "folder", "created_time": "2023-01-01T00:00:00Z"}`,
		"not an object": `[1, 2]`,
	}

	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			engine := newMemEngine()
			engine.put(domain.IndexMetadataItems, "good", `{"id": "0", "name": "ok", "container_code": "p", "container_type": "project", "created_time": "2023-01-01T00:00:00Z"}`)
			engine.put(domain.IndexMetadataItems, "bad", source)
			repo := crud.NewRepository[domain.MetadataItem](engine, domain.IndexMetadataItems, logger.NewNop())

			_, _, err := repo.List(context.Background(), query.DefaultPagination(), query.Sorting{}, nil)
			assert.ErrorIs(t, err, domain.ErrValidation)

			_, err = repo.RetrieveByPK(context.Background(), "bad")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRepository_ParseSetsPKFromID(t *testing.T) {
	t.Parallel()

	repo := crud.NewRepository[domain.DatasetActivity](newMemEngine(), domain.IndexDatasetActivities, logger.NewNop())

	got, err := repo.Parse("engine-id", []byte(`{
		"pk": "stale",
		"activity_type": "update",
		"activity_time": "2023-01-01T00:00:00Z",
		"container_code": "ds1",
		"version": null,
		"target_name": "file.txt",
		"user": "admin",
		"changes": [{"property": "title", "old_value": "a", "new_value": "b"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "engine-id", got.PK)
	assert.Nil(t, got.Version)
	require.NotNil(t, got.TargetName)
	assert.Equal(t, "file.txt", *got.TargetName)
	assert.Equal(t, []domain.DatasetActivityChange{{Property: "title", OldValue: "a", NewValue: "b"}}, got.Changes)
}
