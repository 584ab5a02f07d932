package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testTimestamps struct {
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type testEntity struct {
	testTimestamps
	ID       string `db:"id"`
	Name     string `db:"name"`
	Internal string `db:"-"`
	NoTag    string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[testEntity]()
	assert.ElementsMatch(t, []string{"created_at", "updated_at", "id", "name"}, cols)
}

func TestStructToMap(t *testing.T) {
	e := testEntity{
		testTimestamps: testTimestamps{CreatedAt: "c", UpdatedAt: "u"},
		ID:             "1",
		Name:           "gin",
		Internal:       "skip",
		NoTag:          "skip",
	}

	m := StructToMap(e)
	assert.Equal(t, map[string]any{
		"created_at": "c",
		"updated_at": "u",
		"id":         "1",
		"name":       "gin",
	}, m)

	// Pointer input behaves the same.
	assert.Equal(t, m, StructToMap(&e))
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
