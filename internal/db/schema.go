package db

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	TableSummaries    = "summaries"
	TableDailyDigests = "daily_digests"

	ColumnID            = "id"
	ColumnText          = "text"
	ColumnCreatedAt     = "created_at"
	ColumnDailyDigestID = "daily_digest_id"
)

var (
	// DailyDigestsColumns holds the columns for the "daily_digests" table.
	DailyDigestsColumns = []*schema.Column{
		{Name: ColumnID, Type: field.TypeInt, Increment: true},
		{Name: ColumnText, Type: field.TypeString, Size: 2147483647},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
	}
	// DailyDigestsTable holds the schema information for the "daily_digests" table.
	DailyDigestsTable = &schema.Table{
		Name:       TableDailyDigests,
		Columns:    DailyDigestsColumns,
		PrimaryKey: []*schema.Column{DailyDigestsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "dailydigest_created_at",
				Unique:  false,
				Columns: []*schema.Column{DailyDigestsColumns[2]},
			},
		},
	}
	// SummariesColumns holds the columns for the "summaries" table.
	SummariesColumns = []*schema.Column{
		{Name: ColumnID, Type: field.TypeInt, Increment: true},
		{Name: ColumnText, Type: field.TypeString, Size: 2147483647},
		{Name: ColumnCreatedAt, Type: field.TypeTime},
		{Name: ColumnDailyDigestID, Type: field.TypeInt, Nullable: true},
	}
	// SummariesTable holds the schema information for the "summaries" table.
	SummariesTable = &schema.Table{
		Name:       TableSummaries,
		Columns:    SummariesColumns,
		PrimaryKey: []*schema.Column{SummariesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "summaries_daily_digests_summaries",
				Columns:    []*schema.Column{SummariesColumns[3]},
				RefColumns: []*schema.Column{DailyDigestsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "summary_created_at",
				Unique:  false,
				Columns: []*schema.Column{SummariesColumns[2]},
			},
			{
				Name:    "summary_daily_digest_id",
				Unique:  false,
				Columns: []*schema.Column{SummariesColumns[3]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DailyDigestsTable,
		SummariesTable,
	}
)

func init() {
	SummariesTable.ForeignKeys[0].RefTable = DailyDigestsTable
}
