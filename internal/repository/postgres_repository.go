package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// PostgresRepository stores the ledger in Postgres. Amounts live in
// NUMERIC(20,0) columns so the full uint64 range fits.
type PostgresRepository struct {
	DB *sql.DB
}

const campaignColumns = `address, creator, title, description, target_amount, current_amount, deadline, created_at, is_active, version`

// ====================== Transactions ======================

func (r *PostgresRepository) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx, lock: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&pgTx{tx: tx})
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}

// ====================== Campaign listing ======================

func (r *PostgresRepository) ListCampaigns(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC, address ASC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// ====================== Ledger transaction ======================

// pgTx locks every row it reads when lock is set, so a read-modify-write
// inside Update cannot interleave with another transaction on the same rows.
type pgTx struct {
	tx   *sql.Tx
	lock bool
}

func (t *pgTx) forUpdate(query string) string {
	if t.lock {
		return query + ` FOR UPDATE`
	}
	return query
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.Address, &c.Creator, &c.Title, &c.Description, &c.TargetAmount,
		&c.CurrentAmount, &c.Deadline, &c.CreatedAt, &c.IsActive, &c.Version)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) GetCampaign(ctx context.Context, addr address.Address) (*model.Campaign, error) {
	query := t.forUpdate(`SELECT ` + campaignColumns + ` FROM campaigns WHERE address=$1`)
	c, err := scanCampaign(t.tx.QueryRowContext(ctx, query, addr))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(addr.String())
		}
		return nil, fmt.Errorf("get campaign %s: %w", addr, err)
	}
	return c, nil
}

// InsertCampaign relies on the primary key: a taken address inserts nothing.
func (t *pgTx) InsertCampaign(ctx context.Context, c *model.Campaign) error {
	query := `
        INSERT INTO campaigns (` + campaignColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (address) DO NOTHING
    `
	res, err := t.tx.ExecContext(ctx, query, c.Address, c.Creator, c.Title, c.Description,
		u64(c.TargetAmount), u64(c.CurrentAmount), c.Deadline, c.CreatedAt, c.IsActive, int64(c.Version))
	if err != nil {
		return fmt.Errorf("insert campaign %s: %w", c.Address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewAddressInUse(c.Address.String())
	}
	return nil
}

// UpdateCampaign writes only the mutable fields.
func (t *pgTx) UpdateCampaign(ctx context.Context, c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET current_amount=$1, is_active=$2, version=version+1
        WHERE address=$3 AND version=$4
    `
	res, err := t.tx.ExecContext(ctx, query, u64(c.CurrentAmount), c.IsActive, c.Address, int64(c.Version))
	if err != nil {
		return fmt.Errorf("update campaign %s: %w", c.Address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.ErrConcurrentUpdate
	}
	c.Version++
	return nil
}

func (t *pgTx) GetContribution(ctx context.Context, addr address.Address) (*model.Contribution, error) {
	query := t.forUpdate(`SELECT address, contributor, campaign, amount, updated_at FROM contributions WHERE address=$1`)
	var c model.Contribution
	err := t.tx.QueryRowContext(ctx, query, addr).Scan(&c.Address, &c.Contributor, &c.Campaign, &c.Amount, &c.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contribution %s: %w", addr, err)
	}
	return &c, nil
}

func (t *pgTx) PutContribution(ctx context.Context, c *model.Contribution) error {
	query := `
        INSERT INTO contributions (address, contributor, campaign, amount, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (address) DO UPDATE SET amount=EXCLUDED.amount, updated_at=EXCLUDED.updated_at
    `
	_, err := t.tx.ExecContext(ctx, query, c.Address, c.Contributor, c.Campaign, u64(c.Amount), c.Timestamp)
	if err != nil {
		return fmt.Errorf("put contribution %s: %w", c.Address, err)
	}
	return nil
}

func (t *pgTx) DeleteContribution(ctx context.Context, addr address.Address) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM contributions WHERE address=$1`, addr)
	if err != nil {
		return fmt.Errorf("delete contribution %s: %w", addr, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewContributionNotFound(addr.String())
	}
	return nil
}

func (t *pgTx) ListContributions(ctx context.Context, campaign address.Address) ([]*model.Contribution, error) {
	rows, err := t.tx.QueryContext(ctx, `
        SELECT address, contributor, campaign, amount, updated_at
        FROM contributions WHERE campaign=$1 ORDER BY address`, campaign)
	if err != nil {
		return nil, fmt.Errorf("list contributions of %s: %w", campaign, err)
	}
	defer rows.Close()

	var out []*model.Contribution
	for rows.Next() {
		c := &model.Contribution{}
		if err := rows.Scan(&c.Address, &c.Contributor, &c.Campaign, &c.Amount, &c.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Balance creates the row first when locking, so two transactions crediting
// a brand-new account still serialize on it.
func (t *pgTx) Balance(ctx context.Context, account address.Address) (uint64, error) {
	if t.lock {
		_, err := t.tx.ExecContext(ctx, `INSERT INTO balances (account, amount) VALUES ($1, 0) ON CONFLICT (account) DO NOTHING`, account)
		if err != nil {
			return 0, fmt.Errorf("ensure balance %s: %w", account, err)
		}
	}
	var amount uint64
	err := t.tx.QueryRowContext(ctx, t.forUpdate(`SELECT amount FROM balances WHERE account=$1`), account).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance %s: %w", account, err)
	}
	return amount, nil
}

func (t *pgTx) SetBalance(ctx context.Context, account address.Address, amount uint64) error {
	query := `
        INSERT INTO balances (account, amount) VALUES ($1, $2)
        ON CONFLICT (account) DO UPDATE SET amount=EXCLUDED.amount
    `
	if _, err := t.tx.ExecContext(ctx, query, account, u64(amount)); err != nil {
		return fmt.Errorf("set balance %s: %w", account, err)
	}
	return nil
}

// u64 passes amounts as decimal text; database/sql rejects uint64 values
// with the high bit set.
func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

var _ LedgerRepositoryInterface = (*PostgresRepository)(nil)
