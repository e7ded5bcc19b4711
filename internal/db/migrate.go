package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// RunMigrations ensures the queried tables exist. This keeps the service
// self-contained without an external migration step; ingestion into
// these tables happens elsewhere.
func RunMigrations(ctx context.Context, conn clickhouse.Conn) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS events
(
	timestamp       DateTime('UTC'),
	project_id      UInt64,
	group_id        UInt64,
	environment     LowCardinality(String),
	release         String,
	user            String,
	type            LowCardinality(String)
)
ENGINE = MergeTree
PARTITION BY toYYYYMMDD(timestamp)
ORDER BY (project_id, timestamp)
`,
		`
CREATE TABLE IF NOT EXISTS transactions
(
	timestamp       DateTime('UTC'),
	project_id      UInt64,
	group_ids       Array(UInt64),
	environment     LowCardinality(String),
	user            String
)
ENGINE = MergeTree
PARTITION BY toYYYYMMDD(timestamp)
ORDER BY (project_id, timestamp)
`,
		`
CREATE TABLE IF NOT EXISTS search_issues
(
	timestamp           DateTime('UTC'),
	project_id          UInt64,
	group_id            UInt64,
	occurrence_type_id  UInt16,
	environment         LowCardinality(String),
	user                String
)
ENGINE = MergeTree
PARTITION BY toYYYYMMDD(timestamp)
ORDER BY (project_id, timestamp)
`,
		`
CREATE TABLE IF NOT EXISTS outcomes_hourly
(
	timestamp       DateTime('UTC'),
	org_id          UInt64,
	project_id      UInt64,
	key_id          UInt64,
	outcome         UInt8,
	reason          LowCardinality(String),
	category        UInt8,
	quantity        UInt64
)
ENGINE = SummingMergeTree(quantity)
PARTITION BY toYYYYMM(timestamp)
ORDER BY (org_id, project_id, key_id, outcome, reason, category, timestamp)
`,
		`
CREATE TABLE IF NOT EXISTS outcomes_raw
(
	timestamp       DateTime('UTC'),
	org_id          UInt64,
	project_id      UInt64,
	key_id          UInt64,
	outcome         UInt8,
	reason          LowCardinality(String),
	category        UInt8,
	quantity        UInt64
)
ENGINE = MergeTree
PARTITION BY toYYYYMMDD(timestamp)
ORDER BY (org_id, project_id, timestamp)
`,
	}

	for _, stmt := range statements {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}
