package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems_simulator/internal/model"
)

func TestDefault_PassesValidation(t *testing.T) {
	def := Default()
	assert.Empty(t, model.ValidateSiteConfig(def.Site))
	assert.NoError(t, ValidateTree(def.Spaces))
}

func TestDefault_HasSimulatableLeaves(t *testing.T) {
	def := Default()

	leaves := 0
	for i := range def.Spaces {
		if def.Spaces[i].Type == model.SpaceZone && def.Spaces[i].IsLeaf() {
			leaves++
		}
	}
	assert.Equal(t, 5, leaves)
}

func TestValidateTree_DuplicateID(t *testing.T) {
	spaces := []model.HierarchicalSpace{
		{ID: "a"},
		{ID: "a"},
	}
	err := ValidateTree(spaces)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateTree_EmptyID(t *testing.T) {
	err := ValidateTree([]model.HierarchicalSpace{{ID: ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty id")
}

func TestValidateTree_MissingParent(t *testing.T) {
	err := ValidateTree([]model.HierarchicalSpace{{ID: "a", ParentID: "ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing parent")
}

func TestValidateTree_MissingChild(t *testing.T) {
	err := ValidateTree([]model.HierarchicalSpace{{ID: "a", ChildIDs: []string{"ghost"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing child")
}

func TestValidateTree_ChildParentMismatch(t *testing.T) {
	spaces := []model.HierarchicalSpace{
		{ID: "a", ChildIDs: []string{"b"}},
		{ID: "b", ParentID: "c"},
		{ID: "c"},
	}
	err := ValidateTree(spaces)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whose parent")
}

func TestValidateTree_CycleDetected(t *testing.T) {
	spaces := []model.HierarchicalSpace{
		{ID: "a", ParentID: "b", ChildIDs: []string{"b"}},
		{ID: "b", ParentID: "a", ChildIDs: []string{"a"}},
	}
	err := ValidateTree(spaces)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateTree_ParentOmitsChild(t *testing.T) {
	// c points at a, but a only lists b; c would never be aggregated.
	spaces := []model.HierarchicalSpace{
		{ID: "a", ChildIDs: []string{"b"}},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "a"},
	}
	err := ValidateTree(spaces)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not list it as a child")
}

func TestLoad_RoundTrip(t *testing.T) {
	def := Default()
	data, err := json.Marshal(def)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "definition.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, def.Site.ID, loaded.Site.ID)
	assert.Len(t, loaded.Spaces, len(def.Spaces))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidSite(t *testing.T) {
	def := Default()
	def.Site.Solar.CapacityKW = 0
	data, err := json.Marshal(def)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "definition.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid site config")
}
