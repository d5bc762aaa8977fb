package db

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/fachebot/talk-digest-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Open 打开数据库连接并执行 Schema 迁移
func Open(ctx context.Context, c *config.Database) (*entsql.Driver, error) {
	var drv *entsql.Driver
	switch c.Driver {
	case dialect.SQLite:
		d, err := entsql.Open(dialect.SQLite, c.DSN)
		if err != nil {
			return nil, fmt.Errorf("打开数据库失败: %w", err)
		}
		drv = d
	case dialect.Postgres:
		// pgx 以 "pgx" 名称注册 database/sql 驱动
		sqlDB, err := sql.Open("pgx", c.DSN)
		if err != nil {
			return nil, fmt.Errorf("打开数据库失败: %w", err)
		}
		drv = entsql.OpenDB(dialect.Postgres, sqlDB)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", c.Driver)
	}

	if c.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(c.MaxOpenConns)
	}

	if err := Migrate(ctx, drv); err != nil {
		_ = drv.Close()
		return nil, err
	}
	return drv, nil
}

// Migrate 创建或更新数据库 Schema
func Migrate(ctx context.Context, drv dialect.Driver) error {
	migrate, err := schema.NewMigrate(drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("创建迁移器失败: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("创建数据库Schema失败: %w", err)
	}
	return nil
}

// WithTx 在事务中执行 fn，fn 返回错误或发生 panic 时回滚
func WithTx(ctx context.Context, drv dialect.Driver, fn func(tx dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: 回滚事务失败: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// InsertID 执行插入并返回自增主键。Postgres 使用 RETURNING，其余方言使用 LastInsertId。
func InsertID(ctx context.Context, conn dialect.ExecQuerier, dialectName string, insert *entsql.InsertBuilder) (int64, error) {
	if dialectName == dialect.Postgres {
		query, args := insert.Returning(ColumnID).Query()
		rows := &entsql.Rows{}
		if err := conn.Query(ctx, query, args, rows); err != nil {
			return 0, err
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("插入后未返回主键")
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args := insert.Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Exec 执行写语句并返回受影响的行数
func Exec(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) (int64, error) {
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
