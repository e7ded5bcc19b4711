package model

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModel is returned when a model has no registry entry.
// It signals a caller configuration bug and is never retried.
var ErrUnsupportedModel = errors.New("unsupported model")

// QuerySettings is the per-model query configuration: which dataset to
// hit, the primary grouping column, the column the aggregate function
// targets, mandatory filter conditions, and an optional fixed projection
// for collection-valued aggregate targets.
type QuerySettings struct {
	Dataset         Dataset
	GroupBy         string
	AggregateColumn string
	Conditions      []Condition
	SelectedColumns []ColumnExpr
}

// Transactions are temporarily written to the events table and have to
// be excluded from every error-event model explicitly.
var eventsTypeCondition = Condition{Column: "type", Op: "!=", Value: "transaction"}

// Occurrence type ids of the profiling issue detectors stored on the
// search issues dataset.
var profileIssueCondition = Condition{
	Column: "occurrence_type_id",
	Op:     "IN",
	Value:  []int64{2001, 2002, 2003, 2007, 2008, 2010},
}

var outcomesCategoryCondition = Condition{Column: "category", Op: "IN", Value: errorCategories}

func nonOutcomeSettings() map[Model]QuerySettings {
	arrayJoinGroups := []ColumnExpr{{Function: "arrayJoin", Column: "group_ids", Alias: "group_id"}}

	return map[Model]QuerySettings{
		ModelProject: {
			Dataset: DatasetEvents, GroupBy: "project_id",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelGroup: {
			Dataset: DatasetEvents, GroupBy: "group_id",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelGroupPerformance: {
			Dataset: DatasetTransactions, GroupBy: "group_id",
			SelectedColumns: arrayJoinGroups,
		},
		ModelGroupProfiling: {
			Dataset: DatasetSearchIssues, GroupBy: "group_id",
			Conditions: []Condition{profileIssueCondition},
		},
		ModelRelease: {
			Dataset: DatasetEvents, GroupBy: "release",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelUsersAffectedByGroup: {
			Dataset: DatasetEvents, GroupBy: "group_id", AggregateColumn: "user",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelUsersAffectedByPerfGroup: {
			Dataset: DatasetTransactions, GroupBy: "group_id", AggregateColumn: "user",
			SelectedColumns: arrayJoinGroups,
		},
		ModelUsersAffectedByProfileGroup: {
			Dataset: DatasetSearchIssues, GroupBy: "group_id", AggregateColumn: "user",
			Conditions: []Condition{profileIssueCondition},
		},
		ModelUsersAffectedByProject: {
			Dataset: DatasetEvents, GroupBy: "project_id", AggregateColumn: "user",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelFrequentEnvironmentsByGroup: {
			Dataset: DatasetEvents, GroupBy: "group_id", AggregateColumn: "environment",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelFrequentReleasesByGroup: {
			Dataset: DatasetEvents, GroupBy: "group_id", AggregateColumn: "release",
			Conditions: []Condition{eventsTypeCondition},
		},
		ModelFrequentIssuesByProject: {
			Dataset: DatasetEvents, GroupBy: "project_id", AggregateColumn: "group_id",
			Conditions: []Condition{eventsTypeCondition},
		},
	}
}

func outcomeTotalSettings() map[Model]QuerySettings {
	received := []Condition{
		{Column: "outcome", Op: "IN", Value: totalReceivedOutcomes},
		outcomesCategoryCondition,
	}
	rejected := []Condition{
		{Column: "outcome", Op: "=", Value: OutcomeRateLimited},
		outcomesCategoryCondition,
	}
	blacklisted := []Condition{
		{Column: "outcome", Op: "=", Value: OutcomeFiltered},
		outcomesCategoryCondition,
	}

	outcomeTotals := func(groupBy string, conds []Condition) QuerySettings {
		return QuerySettings{
			Dataset:         DatasetOutcomes,
			GroupBy:         groupBy,
			AggregateColumn: "quantity",
			Conditions:      conds,
		}
	}

	return map[Model]QuerySettings{
		ModelOrganizationTotalReceived:    outcomeTotals("org_id", received),
		ModelOrganizationTotalRejected:    outcomeTotals("org_id", rejected),
		ModelOrganizationTotalBlacklisted: outcomeTotals("org_id", blacklisted),
		ModelProjectTotalReceived:         outcomeTotals("project_id", received),
		ModelProjectTotalRejected:         outcomeTotals("project_id", rejected),
		ModelProjectTotalBlacklisted:      outcomeTotals("project_id", blacklisted),
		ModelKeyTotalReceived:             outcomeTotals("key_id", received),
		ModelKeyTotalRejected:             outcomeTotals("key_id", rejected),
		ModelKeyTotalBlacklisted:          outcomeTotals("key_id", blacklisted),
	}
}

func filterReasonSettings() map[Model]QuerySettings {
	settings := make(map[Model]QuerySettings, len(filterReasonModels))
	for reason, m := range filterReasonModels {
		settings[m] = QuerySettings{
			Dataset:         DatasetOutcomes,
			GroupBy:         "project_id",
			AggregateColumn: "quantity",
			Conditions: []Condition{
				{Column: "reason", Op: "=", Value: reason},
				{Column: "outcome", Op: "IN", Value: totalReceivedOutcomes},
				outcomesCategoryCondition,
			},
		}
	}
	return settings
}

// registry merges the three disjoint settings tables. Assembled once at
// process start and read-only afterwards.
var registry = func() map[Model]QuerySettings {
	merged := make(map[Model]QuerySettings)
	for _, table := range []map[Model]QuerySettings{
		filterReasonSettings(),
		outcomeTotalSettings(),
		nonOutcomeSettings(),
	} {
		for m, s := range table {
			merged[m] = s
		}
	}
	return merged
}()

// Settings returns the query settings for a model, or
// ErrUnsupportedModel when the model is not registered.
func Settings(m Model) (QuerySettings, error) {
	s, ok := registry[m]
	if !ok {
		return QuerySettings{}, fmt.Errorf("%w: %s", ErrUnsupportedModel, m)
	}
	return s, nil
}

// RegisteredModels returns every model present in the registry.
func RegisteredModels() []Model {
	models := make([]Model, 0, len(registry))
	for m := range registry {
		models = append(models, m)
	}
	return models
}
