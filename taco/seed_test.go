package taco

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `
tacos:
  - name: Carnivore
    ingredients: [FLTO, GRBF, CARN, SRCR, SLSA, CHED]
  - name: Bovine Bounty
    ingredients: [COTO, GRBF, CHED, JACK, SRCR]
`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	tacos, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, tacos, 2)
	assert.Equal(t, "Carnivore", tacos[0].Name)
	assert.Equal(t, []string{"COTO", "GRBF", "CHED", "JACK", "SRCR"}, tacos[1].Ingredients)
}

func TestParseSeedErrors(t *testing.T) {
	_, err := ParseSeed([]byte("tacos: [{ingredients: [FLTO]}]"))
	assert.Error(t, err)

	_, err = ParseSeed([]byte("tacos: {"))
	assert.Error(t, err)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
