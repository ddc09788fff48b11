package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%abc%", containsPattern("ABC"))
	assert.Equal(t, "%50!%!_off!!%", containsPattern("50%_off!"))
}

func TestParseDay(t *testing.T) {
	day, err := parseDay(" 2025-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDay("28/02/2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGrowthRate(t *testing.T) {
	assert.Equal(t, 0.0, growthRate(dec("0"), dec("0")))
	assert.Equal(t, 100.0, growthRate(dec("5"), dec("0")))
	assert.Equal(t, -50.0, growthRate(dec("50"), dec("100")))
	assert.Equal(t, 33.33, growthRate(dec("4"), dec("3")))
}

func TestMonthStart(t *testing.T) {
	at := time.Date(2025, 3, 31, 23, 30, 0, 0, time.FixedZone("AST", 3*3600))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), monthStart(at))
}
