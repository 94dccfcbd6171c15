package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery/internal/catalog"
	"discovery/internal/model"
)

func question(t *testing.T, sectionID, id string) *model.Question {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	q, ok := c.Question(sectionID, id)
	require.True(t, ok, "missing question %s", id)
	return q
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		empty bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"blank string", "   ", true},
		{"empty list", []interface{}{}, true},
		{"empty string list", []string{}, true},
		{"empty object", map[string]interface{}{}, true},
		{"zero", 0, false},
		{"zero float", float64(0), false},
		{"zero string", "0", false},
		{"false", false, false},
		{"text", "Acme", false},
		{"list", []interface{}{"gl"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, IsEmpty(tt.value))
		})
	}
}

func TestNormalizeRanking(t *testing.T) {
	keys := []string{"a", "b", "c"}

	t.Run("legacy weights order by descending weight", func(t *testing.T) {
		order, changed := NormalizeRanking(map[string]interface{}{"a": 10.0, "b": 30.0, "c": 20.0}, keys)
		assert.Equal(t, []string{"b", "c", "a"}, order)
		assert.True(t, changed)
	})

	t.Run("ties keep catalog order and missing weight is zero", func(t *testing.T) {
		order, _ := NormalizeRanking(map[string]interface{}{"c": 5.0, "b": 5.0}, keys)
		assert.Equal(t, []string{"b", "c", "a"}, order)
	})

	t.Run("missing keys are appended", func(t *testing.T) {
		order, changed := NormalizeRanking([]interface{}{"c", "a"}, keys)
		assert.Equal(t, []string{"c", "a", "b"}, order)
		assert.True(t, changed)
	})

	t.Run("complete order is unchanged", func(t *testing.T) {
		order, changed := NormalizeRanking([]interface{}{"b", "a", "c"}, keys)
		assert.Equal(t, []string{"b", "a", "c"}, order)
		assert.False(t, changed)
	})

	t.Run("unknown shape falls back to catalog order", func(t *testing.T) {
		order, changed := NormalizeRanking("nonsense", keys)
		assert.Equal(t, keys, order)
		assert.True(t, changed)
	})
}

func TestYesNoFollowup(t *testing.T) {
	q := question(t, "section2", "customisations")

	yes := Normalize(q, map[string]interface{}{"value": true, "followup": "x"})
	assert.Equal(t, map[string]interface{}{"value": true, "followup": "x"}, yes)
	assert.Equal(t, "Yes - x", Render(q, yes))

	no := Normalize(q, false)
	assert.Equal(t, false, no)
	assert.Equal(t, "No", Render(q, no))

	collapsed := Normalize(q, map[string]interface{}{"value": false, "followup": "stale"})
	assert.Equal(t, false, collapsed)

	followup, active := FollowupAnswer(yes)
	assert.True(t, active)
	assert.Equal(t, "x", followup)

	_, active = FollowupAnswer(no)
	assert.False(t, active)
}

func TestRenderChoices(t *testing.T) {
	industry := question(t, "section1", "industry")
	assert.Equal(t, "Wholesale &amp; distribution", Render(industry, "distribution"))
	assert.Equal(t, "legacy-token", Render(industry, "legacy-token"))

	modules := question(t, "section4", "financeModules")
	assert.Equal(t, "General ledger, Accounts payable, mystery",
		Render(modules, Normalize(modules, []interface{}{"gl", "ap", "gl", "mystery"})))
}

func TestRenderRanking(t *testing.T) {
	q := question(t, "section8", "priorityRanking")
	order := Normalize(q, []interface{}{"tco5Year", "functionalFit"})

	rendered := Render(q, order)
	assert.Contains(t, rendered, "1. 5-year TCO<br>2. Functional fit<br>3. Integration fit")
	assert.Contains(t, rendered, "7. Partner delivery confidence")
}

func TestRenderText(t *testing.T) {
	q := question(t, "section10", "successDefinition")
	assert.Equal(t, "line one<br>&lt;b&gt;two&lt;/b&gt;", Render(q, "line one\n<b>two</b>"))
}

func TestRenderNeverPanics(t *testing.T) {
	q := question(t, "section8", "selectionWeights")
	assert.NotPanics(t, func() {
		Render(q, []interface{}{1, "x"})
		Render(&model.Question{Type: "unknown"}, map[string]interface{}{"a": 1})
		Render(nil, 42)
	})
	assert.Equal(t, "42", Render(nil, 42))
}

func TestSplit(t *testing.T) {
	q := question(t, "section8", "selectionWeights")

	t.Run("missing keys default to zero", func(t *testing.T) {
		got := Normalize(q, map[string]interface{}{"price": 60.0, "functionality": 40.0, "bogus": 5.0})
		assert.Equal(t, map[string]int{
			"price": 60, "functionality": 40, "scalability": 0,
			"integration": 0, "partner": 0, "timeline": 0,
		}, got)
		assert.Empty(t, Validate(q, got))
	})

	t.Run("sum other than 100 is a hint", func(t *testing.T) {
		got := Normalize(q, map[string]interface{}{"price": 50.0, "functionality": 30.0})
		assert.Equal(t, 80, SplitTotal(got))
		hints := Validate(q, got)
		require.Len(t, hints, 1)
		assert.Equal(t, "Total must equal 100% (currently 80%)", hints[0])
	})

	t.Run("out of range weight", func(t *testing.T) {
		hints := Validate(q, map[string]interface{}{"price": 120.0, "functionality": -20.0})
		assert.Len(t, hints, 2)
	})

	t.Run("render in catalog order", func(t *testing.T) {
		got := Normalize(q, map[string]interface{}{"price": 70.0, "timeline": 30.0})
		rendered := Render(q, got)
		assert.Contains(t, rendered, "Price/Total Cost of Ownership: 70%<br>Functionality Fit: 0%")
	})
}

func TestNumbersAndScale(t *testing.T) {
	count := question(t, "section1", "employeeCount")
	assert.Equal(t, 250, Normalize(count, "250"))
	assert.Equal(t, 0, Normalize(count, 0.0))
	assert.Nil(t, Normalize(count, ""))
	assert.NotEmpty(t, Validate(count, 2.5))

	satisfaction := question(t, "section2", "satisfaction")
	assert.Equal(t, 4, Normalize(satisfaction, 4.0))
	assert.Empty(t, Validate(satisfaction, 4))
	assert.NotEmpty(t, Validate(satisfaction, 9))
}

func TestValidateTextAndDate(t *testing.T) {
	name := question(t, "section1", "companyName")
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	assert.NotEmpty(t, Validate(name, string(long)))
	assert.Empty(t, Validate(name, "Acme"))

	golive := question(t, "section9", "targetGoLive")
	assert.Empty(t, Validate(golive, "2027-01-31"))
	assert.NotEmpty(t, Validate(golive, "next spring"))
}

func TestFollowupValidation(t *testing.T) {
	q := question(t, "section2", "customisations")
	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'x'
	}
	hints := Validate(q, map[string]interface{}{"value": true, "followup": string(long)})
	assert.Len(t, hints, 1)
}
