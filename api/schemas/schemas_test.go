package schemas_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

func TestParseSelectorKind(t *testing.T) {
	for _, kind := range []string{"id", "class", "cssSelector", "xpath", "name"} {
		t.Run(kind, func(t *testing.T) {
			got, err := schemas.ParseSelectorKind(kind)
			require.NoError(t, err)
			assert.Equal(t, schemas.SelectorKind(kind), got)
		})
	}

	for _, bad := range []string{"", "css", "ID", "tag"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := schemas.ParseSelectorKind(bad)
			assert.Error(t, err)
		})
	}
}

func TestLocator_String(t *testing.T) {
	loc := schemas.Locator{Kind: schemas.SelectorXPath, Value: "//li[1]"}
	assert.Equal(t, "xpath=//li[1]", loc.String())
}

func TestRunResult_Capture(t *testing.T) {
	res := &schemas.RunResult{Captures: []schemas.Capture{
		{Name: "drugs", Values: []string{"Aspirin"}},
		{Name: "empty", Values: []string{}},
	}}

	values, ok := res.Capture("drugs")
	assert.True(t, ok)
	assert.Equal(t, []string{"Aspirin"}, values)

	values, ok = res.Capture("empty")
	assert.True(t, ok, "an empty capture is still present")
	assert.Empty(t, values)

	_, ok = res.Capture("missing")
	assert.False(t, ok)

	var nilResult *schemas.RunResult
	_, ok = nilResult.Capture("drugs")
	assert.False(t, ok)
}

func TestSnapshot_SourceNotSerialized(t *testing.T) {
	snap := schemas.Snapshot{
		Sequence: 3,
		Path:     "subscripts.lookup.shot",
		TakenAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Source:   "<html>large</html>",
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "Source")
	assert.NotContains(t, fields, "loop_value", "empty loop value is omitted")
	assert.Equal(t, "subscripts.lookup.shot", fields["path"])
	assert.EqualValues(t, 3, fields["sequence"])
}
