package model

// Outcome is the fate assigned to an event by the ingestion pipeline.
type Outcome int

const (
	OutcomeAccepted      Outcome = 0
	OutcomeFiltered      Outcome = 1
	OutcomeRateLimited   Outcome = 2
	OutcomeInvalid       Outcome = 3
	OutcomeAbuse         Outcome = 4
	OutcomeClientDiscard Outcome = 5
)

// Category buckets events by payload kind on the outcomes tables.
type Category int

const (
	CategoryDefault  Category = 0
	CategoryError    Category = 1
	CategorySecurity Category = 3
)

// totalReceivedOutcomes is the subset counted as "received": client
// discards and invalid payloads are excluded so the numbers line up with
// the org stats pages.
var totalReceivedOutcomes = []Outcome{OutcomeAccepted, OutcomeFiltered, OutcomeRateLimited}

// errorCategories are the categories recorded as errors; default and
// security payloads have historically been counted together with errors.
var errorCategories = []Category{CategoryDefault, CategoryError, CategorySecurity}

// filterReasonModels maps each inbound-filter rejection reason, as
// written to the outcomes tables, to its filtered-count model. The model
// registry generates one settings entry per row.
var filterReasonModels = map[string]Model{
	"ip-address":           ModelProjectTotalReceivedIPAddress,
	"release-version":      ModelProjectTotalReceivedReleaseVersion,
	"error-message":        ModelProjectTotalReceivedErrorMessage,
	"browser-extensions":   ModelProjectTotalReceivedBrowserExtensions,
	"legacy-browsers":      ModelProjectTotalReceivedLegacyBrowsers,
	"localhost":            ModelProjectTotalReceivedLocalhost,
	"web-crawlers":         ModelProjectTotalReceivedWebCrawlers,
	"invalid-csp":          ModelProjectTotalReceivedInvalidCSP,
	"cors":                 ModelProjectTotalReceivedCors,
	"discarded-hash":       ModelProjectTotalReceivedDiscardedHash,
	"crash-report-limit":   ModelProjectTotalReceivedCrashReportLimit,
	"filtered-transaction": ModelProjectTotalReceivedFilteredTransaction,
}
