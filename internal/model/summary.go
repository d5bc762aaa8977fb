package model

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/fachebot/talk-digest-bot/internal/db"
	"github.com/fachebot/talk-digest-bot/internal/errors"
)

// Summary 一个分段的摘要。DailyDigestID 只会被设置一次，Text 创建后不可变
type Summary struct {
	ID            int64     `json:"id"`
	DailyDigestID *int64    `json:"daily_digest_id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"timestamp"`
}

var summaryColumns = []string{db.ColumnID, db.ColumnText, db.ColumnCreatedAt, db.ColumnDailyDigestID}

type SummaryModel struct {
	drv dialect.Driver
}

func NewSummaryModel(drv dialect.Driver) *SummaryModel {
	return &SummaryModel{drv: drv}
}

func (m *SummaryModel) selector() *entsql.Selector {
	b := entsql.Dialect(m.drv.Dialect())
	return b.Select(summaryColumns...).From(b.Table(db.TableSummaries))
}

// Create 创建摘要，daily_digest_id 初始为空
func (m *SummaryModel) Create(ctx context.Context, text string, createdAt time.Time) (*Summary, error) {
	createdAt = createdAt.UTC()
	insert := entsql.Dialect(m.drv.Dialect()).
		Insert(db.TableSummaries).
		Columns(db.ColumnText, db.ColumnCreatedAt).
		Values(text, createdAt)

	id, err := db.InsertID(ctx, m.drv, m.drv.Dialect(), insert)
	if err != nil {
		return nil, errors.NewStore("insert summary", err)
	}
	return &Summary{ID: id, Text: text, CreatedAt: createdAt}, nil
}

// All 查询全部摘要，按时间升序
func (m *SummaryModel) All(ctx context.Context) ([]*Summary, error) {
	query, args := m.selector().
		OrderBy(db.ColumnCreatedAt, db.ColumnID).
		Query()
	return m.query(ctx, "list summaries", query, args)
}

// Page 分页查询摘要，按时间倒序，page 从 1 开始，offset = count*(page-1)
func (m *SummaryModel) Page(ctx context.Context, count, page int) ([]*Summary, error) {
	if page < 1 {
		page = 1
	}
	query, args := m.selector().
		OrderBy(entsql.Desc(db.ColumnCreatedAt), entsql.Desc(db.ColumnID)).
		Limit(count).
		Offset(count * (page - 1)).
		Query()
	return m.query(ctx, "page summaries", query, args)
}

// Eligible 查询尚未归入日报的摘要；since 不为空时只返回 created_at >= since 的记录。按时间升序
func (m *SummaryModel) Eligible(ctx context.Context, since *time.Time) ([]*Summary, error) {
	where := entsql.IsNull(db.ColumnDailyDigestID)
	if since != nil {
		where = entsql.And(where, entsql.GTE(db.ColumnCreatedAt, since.UTC()))
	}
	query, args := m.selector().
		Where(where).
		OrderBy(db.ColumnCreatedAt, db.ColumnID).
		Query()
	return m.query(ctx, "list eligible summaries", query, args)
}

// ByDigest 查询归属于指定日报的摘要
func (m *SummaryModel) ByDigest(ctx context.Context, digestID int64) ([]*Summary, error) {
	query, args := m.selector().
		Where(entsql.EQ(db.ColumnDailyDigestID, digestID)).
		OrderBy(db.ColumnCreatedAt, db.ColumnID).
		Query()
	return m.query(ctx, "list digest summaries", query, args)
}

// linked 查询所有已归入日报的摘要
func (m *SummaryModel) linked(ctx context.Context) ([]*Summary, error) {
	query, args := m.selector().
		Where(entsql.NotNull(db.ColumnDailyDigestID)).
		OrderBy(db.ColumnCreatedAt, db.ColumnID).
		Query()
	return m.query(ctx, "list linked summaries", query, args)
}

func (m *SummaryModel) query(ctx context.Context, op, query string, args []any) ([]*Summary, error) {
	rows := &entsql.Rows{}
	if err := m.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.NewStore(op, err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, errors.NewStore(op, err)
	}
	return summaries, nil
}

func scanSummaries(rows *entsql.Rows) ([]*Summary, error) {
	defer rows.Close()

	summaries := make([]*Summary, 0)
	for rows.Next() {
		var (
			s        Summary
			digestID sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Text, &s.CreatedAt, &digestID); err != nil {
			return nil, err
		}
		if digestID.Valid {
			id := digestID.Int64
			s.DailyDigestID = &id
		}
		s.CreatedAt = s.CreatedAt.UTC()
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
