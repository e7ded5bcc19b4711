package model

import "fmt"

// Model identifies a logical metric series, e.g. events per project or
// unique users per group. The numeric value is stable and is used as the
// referrer tag on backend queries.
type Model int

const (
	ModelUnknown Model = iota

	// Event based series.
	ModelProject
	ModelGroup
	ModelGroupPerformance
	ModelGroupProfiling
	ModelRelease

	// Distinct user series.
	ModelUsersAffectedByGroup
	ModelUsersAffectedByPerfGroup
	ModelUsersAffectedByProfileGroup
	ModelUsersAffectedByProject

	// Frequency series.
	ModelFrequentEnvironmentsByGroup
	ModelFrequentReleasesByGroup
	ModelFrequentIssuesByProject

	// Outcome totals.
	ModelOrganizationTotalReceived
	ModelOrganizationTotalRejected
	ModelOrganizationTotalBlacklisted
	ModelProjectTotalReceived
	ModelProjectTotalRejected
	ModelProjectTotalBlacklisted
	ModelKeyTotalReceived
	ModelKeyTotalRejected
	ModelKeyTotalBlacklisted

	// Per inbound-filter-reason received totals, generated from the
	// filter reason table.
	ModelProjectTotalReceivedIPAddress
	ModelProjectTotalReceivedReleaseVersion
	ModelProjectTotalReceivedErrorMessage
	ModelProjectTotalReceivedBrowserExtensions
	ModelProjectTotalReceivedLegacyBrowsers
	ModelProjectTotalReceivedLocalhost
	ModelProjectTotalReceivedWebCrawlers
	ModelProjectTotalReceivedInvalidCSP
	ModelProjectTotalReceivedCors
	ModelProjectTotalReceivedDiscardedHash
	ModelProjectTotalReceivedCrashReportLimit
	ModelProjectTotalReceivedFilteredTransaction
)

var modelNames = map[Model]string{
	ModelProject:          "project",
	ModelGroup:            "group",
	ModelGroupPerformance: "group_performance",
	ModelGroupProfiling:   "group_profiling",
	ModelRelease:          "release",

	ModelUsersAffectedByGroup:        "users_affected_by_group",
	ModelUsersAffectedByPerfGroup:    "users_affected_by_perf_group",
	ModelUsersAffectedByProfileGroup: "users_affected_by_profile_group",
	ModelUsersAffectedByProject:      "users_affected_by_project",

	ModelFrequentEnvironmentsByGroup: "frequent_environments_by_group",
	ModelFrequentReleasesByGroup:     "frequent_releases_by_group",
	ModelFrequentIssuesByProject:     "frequent_issues_by_project",

	ModelOrganizationTotalReceived:    "organization_total_received",
	ModelOrganizationTotalRejected:    "organization_total_rejected",
	ModelOrganizationTotalBlacklisted: "organization_total_blacklisted",
	ModelProjectTotalReceived:         "project_total_received",
	ModelProjectTotalRejected:         "project_total_rejected",
	ModelProjectTotalBlacklisted:      "project_total_blacklisted",
	ModelKeyTotalReceived:             "key_total_received",
	ModelKeyTotalRejected:             "key_total_rejected",
	ModelKeyTotalBlacklisted:          "key_total_blacklisted",

	ModelProjectTotalReceivedIPAddress:           "project_total_received_ip_address",
	ModelProjectTotalReceivedReleaseVersion:      "project_total_received_release_version",
	ModelProjectTotalReceivedErrorMessage:        "project_total_received_error_message",
	ModelProjectTotalReceivedBrowserExtensions:   "project_total_received_browser_extensions",
	ModelProjectTotalReceivedLegacyBrowsers:      "project_total_received_legacy_browsers",
	ModelProjectTotalReceivedLocalhost:           "project_total_received_localhost",
	ModelProjectTotalReceivedWebCrawlers:         "project_total_received_web_crawlers",
	ModelProjectTotalReceivedInvalidCSP:          "project_total_received_invalid_csp",
	ModelProjectTotalReceivedCors:                "project_total_received_cors",
	ModelProjectTotalReceivedDiscardedHash:       "project_total_received_discarded_hash",
	ModelProjectTotalReceivedCrashReportLimit:    "project_total_received_crash_report_limit",
	ModelProjectTotalReceivedFilteredTransaction: "project_total_received_filtered_transaction",
}

var modelsByName = func() map[string]Model {
	byName := make(map[string]Model, len(modelNames))
	for m, name := range modelNames {
		byName[name] = m
	}
	return byName
}()

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("model(%d)", int(m))
}

// ParseModel resolves a model by its wire name, as used by the HTTP layer.
func ParseModel(name string) (Model, error) {
	m, ok := modelsByName[name]
	if !ok {
		return ModelUnknown, fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
	}
	return m, nil
}
