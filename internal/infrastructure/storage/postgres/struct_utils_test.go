package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockcore/internal/core/id"
)

type timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type mockRecord struct {
	timestamps
	ID     id.ID  `db:"id" json:"id"`
	Label  string `db:"label" json:"label"`
	Note   string `db:"-" json:"note"`
	cached int
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRecord]()

	assert.Equal(t, []string{"created_at", "updated_at", "id", "label"}, cols)
}

func TestExtractDBColumns_SkipsUntaggedAndIgnored(t *testing.T) {
	cols := ExtractDBColumns[mockRecord]()

	assert.NotContains(t, cols, "note")
	assert.NotContains(t, cols, "cached")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	rec := mockRecord{
		timestamps: timestamps{CreatedAt: now, UpdatedAt: now},
		ID:         id.New(),
		Label:      "BATCH-2026-00001",
		Note:       "not persisted",
		cached:     7,
	}

	m := StructToMap(rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, "BATCH-2026-00001", m["label"])
	assert.Equal(t, now, m["created_at"])
	assert.NotContains(t, m, "note")
	assert.Len(t, m, 4)
}

func TestStructToMap_PointerInput(t *testing.T) {
	rec := &mockRecord{ID: id.New(), Label: "X"}

	m := StructToMap(rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, "X", m["label"])
}
