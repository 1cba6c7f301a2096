package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, churned bool, features map[string]Tristate) CustomerRecord {
	return CustomerRecord{ID: id, Churned: churned, Features: features}
}

func internetRecords() []CustomerRecord {
	var records []CustomerRecord
	for i := 0; i < 4; i++ {
		records = append(records, rec("yes", i < 3, map[string]Tristate{"InternetService": Subscribed}))
	}
	for i := 0; i < 6; i++ {
		records = append(records, rec("no", i%2 == 0, map[string]Tristate{"InternetService": NotSubscribed}))
	}
	return records
}

func TestComputeChurnRatesInternetService(t *testing.T) {
	stats := ComputeChurnRates(internetRecords(), []string{"InternetService"}, ChurnedLabel)

	require.Len(t, stats, 1)
	assert.Equal(t, FeatureChurnStat{Feature: "InternetService", Subscribers: 4, Churned: 3, ChurnRate: 75.0}, stats[0])
}

func TestComputeChurnRatesEmptyRecords(t *testing.T) {
	stats := ComputeChurnRates(nil, []string{"A", "B"}, ChurnedLabel)

	assert.Equal(t, []FeatureChurnStat{{Feature: "A"}, {Feature: "B"}}, stats)
}

func TestComputeChurnRatesUnknownFeature(t *testing.T) {
	stats := ComputeChurnRates(internetRecords(), []string{"StreamingTV", "InternetService"}, ChurnedLabel)

	require.Len(t, stats, 2)
	assert.Equal(t, FeatureChurnStat{Feature: "StreamingTV"}, stats[0])
	assert.Equal(t, "InternetService", stats[1].Feature)
}

func TestComputeChurnRatesIgnoresUnknownState(t *testing.T) {
	records := []CustomerRecord{
		rec("1", true, map[string]Tristate{"OnlineBackup": Unknown}),
		rec("2", true, map[string]Tristate{"OnlineBackup": Subscribed}),
		rec("3", false, map[string]Tristate{"OnlineBackup": Subscribed}),
	}

	stats := ComputeChurnRates(records, []string{"OnlineBackup"}, ChurnedLabel)
	assert.Equal(t, 2, stats[0].Subscribers)
	assert.Equal(t, 1, stats[0].Churned)
	assert.Equal(t, 50.0, stats[0].ChurnRate)
}

func TestComputeChurnRatesPredicate(t *testing.T) {
	stats := ComputeChurnRates(internetRecords(), []string{"InternetService"}, RetainedLabel)

	assert.Equal(t, 4, stats[0].Subscribers)
	assert.Equal(t, 1, stats[0].Churned)
	assert.Equal(t, 25.0, stats[0].ChurnRate)
}

func TestComputeChurnRatesProperties(t *testing.T) {
	features := []string{"PhoneService", "InternetService", "TechSupport", "Missing"}
	states := []Tristate{Subscribed, NotSubscribed, Unknown}

	var records []CustomerRecord
	for i := 0; i < 90; i++ {
		records = append(records, rec("c", i%7 < 3, map[string]Tristate{
			"PhoneService":    states[i%3],
			"InternetService": states[(i/3)%3],
			"TechSupport":     states[(i/9)%3],
		}))
	}

	first := ComputeChurnRates(records, features, ChurnedLabel)
	second := ComputeChurnRates(records, features, ChurnedLabel)
	assert.Equal(t, first, second)

	require.Len(t, first, len(features))
	for i, s := range first {
		assert.Equal(t, features[i], s.Feature)
		assert.LessOrEqual(t, s.Churned, s.Subscribers)
		assert.GreaterOrEqual(t, s.ChurnRate, 0.0)
		assert.LessOrEqual(t, s.ChurnRate, 100.0)
		if s.Subscribers == 0 {
			assert.Equal(t, 0.0, s.ChurnRate)
		}
	}
}

func TestTopKBreaksTiesByInputOrder(t *testing.T) {
	stats := []FeatureChurnStat{
		{Feature: "A", ChurnRate: 10},
		{Feature: "B", ChurnRate: 30},
		{Feature: "C", ChurnRate: 30},
		{Feature: "D", ChurnRate: 5},
	}

	top := TopK(stats, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Feature)
	assert.Equal(t, "C", top[1].Feature)

	// 输入不被修改
	assert.Equal(t, "A", stats[0].Feature)
}

func TestTopKBounds(t *testing.T) {
	stats := []FeatureChurnStat{
		{Feature: "A", ChurnRate: 10},
		{Feature: "B", ChurnRate: 40},
		{Feature: "C", ChurnRate: 20},
	}

	all := TopK(stats, 10)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"B", "C", "A"}, featureNames(all))
	assert.ElementsMatch(t, stats, all)

	assert.Empty(t, TopK(stats, 0))
	assert.Empty(t, TopK(stats, -3))
	assert.NotNil(t, TopK(stats, 0))
	assert.Empty(t, TopK(nil, 2))
}

func TestComputeSegmentChurnRates(t *testing.T) {
	records := []CustomerRecord{
		{ID: "1", Churned: true, Attributes: map[string]string{"Contract": "Month-to-month"}},
		{ID: "2", Churned: false, Attributes: map[string]string{"Contract": "Two year"}},
		{ID: "3", Churned: true, Attributes: map[string]string{"Contract": "Month-to-month"}},
		{ID: "4", Churned: false, Attributes: map[string]string{"Contract": "Month-to-month"}},
		{ID: "5", Churned: false},
	}

	stats := ComputeSegmentChurnRates(records, "Contract", ChurnedLabel)
	require.Len(t, stats, 3)
	assert.Equal(t, "Month-to-month", stats[0].Segment)
	assert.Equal(t, 3, stats[0].Customers)
	assert.Equal(t, 2, stats[0].Churned)
	assert.InDelta(t, 66.666, stats[0].ChurnRate, 0.001)
	assert.Equal(t, SegmentChurnStat{Segment: "Two year", Customers: 1}, stats[1])
	assert.Equal(t, SegmentChurnStat{Segment: "", Customers: 1}, stats[2])

	assert.Empty(t, ComputeSegmentChurnRates(nil, "Contract", ChurnedLabel))
}

func TestPredicateFor(t *testing.T) {
	p, err := PredicateFor(DefinitionLabel)
	require.NoError(t, err)
	assert.True(t, p(CustomerRecord{Churned: true}))

	p, err = PredicateFor(DefinitionInverted)
	require.NoError(t, err)
	assert.True(t, p(CustomerRecord{Churned: false}))

	_, err = PredicateFor("")
	assert.Error(t, err)
}

func featureNames(stats []FeatureChurnStat) []string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Feature
	}
	return names
}
