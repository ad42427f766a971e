package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/pkg/apperr"
)

var testWhitelist = Whitelist{
	"status":     {Column: "p.status", Op: OpEq, Kind: KindProjectStatus},
	"created_by": {Column: "p.created_by", Op: OpEq, Kind: KindInt},
	"due_from":   {Column: "p.due_date", Op: OpGte, Kind: KindDate},
	"due_to":     {Column: "p.due_date", Op: OpLte, Kind: KindDate},
	"name":       {Column: "p.name", Op: OpEq, Kind: KindText},
}

func TestBuild_WhitelistedKeysOnly(t *testing.T) {
	clause, err := Build(map[string]string{
		"created_by":          "7",
		"status":              "active",
		"1=1; DROP TABLE x--": "boom",
		"order":               "name",
	}, testWhitelist, 1)
	require.NoError(t, err)

	assert.Equal(t, "p.created_by = $1 AND p.status = $2", clause.SQL)
	assert.Equal(t, []any{7, "active"}, clause.Args)
	assert.Equal(t, []string{"created_by", "status"}, clause.Keys)
	assert.True(t, clause.Has("status"))
	assert.False(t, clause.Has("order"))
}

func TestBuild_EmptyMatchesAll(t *testing.T) {
	clause, err := Build(map[string]string{"unknown": "x", "status": "  "}, testWhitelist, 1)
	require.NoError(t, err)
	assert.True(t, clause.Empty())
	assert.Empty(t, clause.Args)

	clause, err = Build(nil, testWhitelist, 1)
	require.NoError(t, err)
	assert.True(t, clause.Empty())
}

func TestBuild_PlaceholderOffsetAndRanges(t *testing.T) {
	clause, err := Build(map[string]string{
		"due_from": "2024-01-01",
		"due_to":   "2024-02-01",
	}, testWhitelist, 3)
	require.NoError(t, err)

	assert.Equal(t, "p.due_date >= $3 AND p.due_date <= $4", clause.SQL)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), clause.Args[0])
}

func TestBuild_ValuesAreBoundNotInlined(t *testing.T) {
	clause, err := Build(map[string]string{"name": "x' OR '1'='1"}, testWhitelist, 1)
	require.NoError(t, err)

	assert.Equal(t, "p.name = $1", clause.SQL)
	assert.Equal(t, []any{"x' OR '1'='1"}, clause.Args)
}

func TestBuild_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"created_by": "seven",
		"due_from":   "01/02/2024",
		"status":     "archived",
	}
	for key, value := range cases {
		_, err := Build(map[string]string{key: value}, testWhitelist, 1)
		e, ok := apperr.As(err)
		require.True(t, ok, key)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, []string{key}, e.Fields)
	}
}

func TestBuild_RejectsUnknownOperator(t *testing.T) {
	_, err := Build(map[string]string{"x": "1"}, Whitelist{"x": {Column: "x", Op: "LIKE", Kind: KindText}}, 1)
	assert.Error(t, err)
}

func TestFromQuery(t *testing.T) {
	values := url.Values{"status": {"active", "on_hold"}, "empty": {}}
	assert.Equal(t, map[string]string{"status": "active"}, FromQuery(values))
}
