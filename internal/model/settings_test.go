package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_EveryRegisteredModelHasKnownDataset(t *testing.T) {
	known := make(map[Dataset]bool)
	for _, d := range Datasets() {
		known[d] = true
	}

	models := RegisteredModels()
	require.NotEmpty(t, models)

	for _, m := range models {
		settings, err := Settings(m)
		require.NoError(t, err, "model %s", m)
		assert.True(t, known[settings.Dataset], "model %s has unknown dataset %q", m, settings.Dataset)
	}
}

func TestSettings_UnsupportedModel(t *testing.T) {
	_, err := Settings(ModelUnknown)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = Settings(Model(9999))
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestSettings_FilterReasonModelsGenerated(t *testing.T) {
	for reason, m := range filterReasonModels {
		settings, err := Settings(m)
		require.NoError(t, err, "reason %s", reason)

		assert.Equal(t, DatasetOutcomes, settings.Dataset)
		assert.Equal(t, "project_id", settings.GroupBy)
		assert.Equal(t, "quantity", settings.AggregateColumn)
		require.NotEmpty(t, settings.Conditions)
		assert.Equal(t, Condition{Column: "reason", Op: "=", Value: reason}, settings.Conditions[0])
	}
}

func TestSettings_OutcomeTotals(t *testing.T) {
	tests := []struct {
		model   Model
		groupBy string
		outcome any
		op      string
	}{
		{ModelOrganizationTotalReceived, "org_id", []Outcome{OutcomeAccepted, OutcomeFiltered, OutcomeRateLimited}, "IN"},
		{ModelProjectTotalRejected, "project_id", OutcomeRateLimited, "="},
		{ModelKeyTotalBlacklisted, "key_id", OutcomeFiltered, "="},
	}

	for _, tt := range tests {
		settings, err := Settings(tt.model)
		require.NoError(t, err, "model %s", tt.model)

		assert.Equal(t, DatasetOutcomes, settings.Dataset)
		assert.Equal(t, tt.groupBy, settings.GroupBy)
		assert.Equal(t, "quantity", settings.AggregateColumn)
		require.Len(t, settings.Conditions, 2)
		assert.Equal(t, tt.op, settings.Conditions[0].Op)
		assert.Equal(t, tt.outcome, settings.Conditions[0].Value)
	}
}

func TestSettings_SelectedColumnsOnlyOnArrayJoinModels(t *testing.T) {
	for _, m := range []Model{ModelGroupPerformance, ModelUsersAffectedByPerfGroup} {
		settings, err := Settings(m)
		require.NoError(t, err)
		require.Len(t, settings.SelectedColumns, 1)
		assert.Equal(t, ColumnExpr{Function: "arrayJoin", Column: "group_ids", Alias: "group_id"}, settings.SelectedColumns[0])
	}

	settings, err := Settings(ModelGroup)
	require.NoError(t, err)
	assert.Empty(t, settings.SelectedColumns)
}

func TestCondition_CloneIsIndependent(t *testing.T) {
	original := Condition{Column: "outcome", Op: "IN", Value: []Outcome{OutcomeAccepted, OutcomeFiltered}}

	clone := original.Clone()
	clone.Value.([]Outcome)[0] = OutcomeInvalid

	assert.Equal(t, OutcomeAccepted, original.Value.([]Outcome)[0])
}

func TestParseModel(t *testing.T) {
	m, err := ParseModel("users_affected_by_group")
	require.NoError(t, err)
	assert.Equal(t, ModelUsersAffectedByGroup, m)

	_, err = ParseModel("nope")
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
