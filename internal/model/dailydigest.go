package model

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/fachebot/talk-digest-bot/internal/db"
	"github.com/fachebot/talk-digest-bot/internal/errors"
)

// ErrSummaryLinked 摘要已归入其他日报，或不存在
var ErrSummaryLinked = stderrors.New("摘要已归入其他日报")

// DailyDigest 由一组摘要合成的日报
type DailyDigest struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"timestamp"`
	Summaries []*Summary `json:"summaries"`
}

type DailyDigestModel struct {
	drv dialect.Driver
}

func NewDailyDigestModel(drv dialect.Driver) *DailyDigestModel {
	return &DailyDigestModel{drv: drv}
}

// Watermark 返回最新日报所关联摘要中最大的 created_at，没有日报或最新日报不含摘要时返回 nil。
// 摘要按写入顺序提交，因此水位线之后提交的摘要不会早于水位线。
func (m *DailyDigestModel) Watermark(ctx context.Context) (*time.Time, error) {
	b := entsql.Dialect(m.drv.Dialect())
	query, args := b.Select(db.ColumnID).
		From(b.Table(db.TableDailyDigests)).
		OrderBy(entsql.Desc(db.ColumnCreatedAt), entsql.Desc(db.ColumnID)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := m.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.NewStore("query latest digest", err)
	}
	latestID, found, err := scanID(rows)
	if err != nil {
		return nil, errors.NewStore("query latest digest", err)
	}
	if !found {
		return nil, nil
	}

	linked, err := NewSummaryModel(m.drv).ByDigest(ctx, latestID)
	if err != nil {
		return nil, err
	}
	if len(linked) == 0 {
		return nil, nil
	}
	watermark := linked[len(linked)-1].CreatedAt
	return &watermark, nil
}

func scanID(rows *entsql.Rows) (int64, bool, error) {
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CreateWithSummaries 在同一事务中创建日报并关联摘要。
// 任一摘要已被关联时整体回滚，不会留下部分写入。
func (m *DailyDigestModel) CreateWithSummaries(
	ctx context.Context,
	text string,
	createdAt time.Time,
	summaries []*Summary,
) (*DailyDigest, error) {
	createdAt = createdAt.UTC()
	digest := &DailyDigest{Text: text, CreatedAt: createdAt}

	err := db.WithTx(ctx, m.drv, func(tx dialect.Tx) error {
		b := entsql.Dialect(m.drv.Dialect())
		insert := b.Insert(db.TableDailyDigests).
			Columns(db.ColumnText, db.ColumnCreatedAt).
			Values(text, createdAt)

		id, err := db.InsertID(ctx, tx, m.drv.Dialect(), insert)
		if err != nil {
			return err
		}
		digest.ID = id

		for _, s := range summaries {
			query, args := b.Update(db.TableSummaries).
				Set(db.ColumnDailyDigestID, id).
				Where(entsql.And(
					entsql.EQ(db.ColumnID, s.ID),
					entsql.IsNull(db.ColumnDailyDigestID),
				)).
				Query()

			affected, err := db.Exec(ctx, tx, query, args)
			if err != nil {
				return err
			}
			if affected != 1 {
				return fmt.Errorf("%w: summary %d", ErrSummaryLinked, s.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewStore("create daily digest", err)
	}

	digest.Summaries = make([]*Summary, 0, len(summaries))
	for _, s := range summaries {
		linked := *s
		digestID := digest.ID
		linked.DailyDigestID = &digestID
		digest.Summaries = append(digest.Summaries, &linked)
	}
	return digest, nil
}

// AllWithSummaries 查询全部日报及其摘要，按时间升序
func (m *DailyDigestModel) AllWithSummaries(ctx context.Context) ([]*DailyDigest, error) {
	b := entsql.Dialect(m.drv.Dialect())
	query, args := b.Select(db.ColumnID, db.ColumnText, db.ColumnCreatedAt).
		From(b.Table(db.TableDailyDigests)).
		OrderBy(db.ColumnCreatedAt, db.ColumnID).
		Query()

	rows := &entsql.Rows{}
	if err := m.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.NewStore("list daily digests", err)
	}
	digests, err := scanDailyDigests(rows)
	if err != nil {
		return nil, errors.NewStore("list daily digests", err)
	}
	if len(digests) == 0 {
		return digests, nil
	}

	linked, err := NewSummaryModel(m.drv).linked(ctx)
	if err != nil {
		return nil, err
	}

	byDigest := make(map[int64]*DailyDigest, len(digests))
	for _, d := range digests {
		byDigest[d.ID] = d
	}
	for _, s := range linked {
		if d, ok := byDigest[*s.DailyDigestID]; ok {
			d.Summaries = append(d.Summaries, s)
		}
	}
	return digests, nil
}

func scanDailyDigests(rows *entsql.Rows) ([]*DailyDigest, error) {
	defer rows.Close()

	digests := make([]*DailyDigest, 0)
	for rows.Next() {
		d := DailyDigest{Summaries: make([]*Summary, 0)}
		if err := rows.Scan(&d.ID, &d.Text, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.CreatedAt = d.CreatedAt.UTC()
		digests = append(digests, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return digests, nil
}
