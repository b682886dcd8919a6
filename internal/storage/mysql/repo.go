package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"hotel_reconciler/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Open builds a pool from dsn with the options the conditional updates
// depend on: clientFoundRows (matched, not changed, rows) and parseTime.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	conn, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(conn), nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- inventory ----

func (r *Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		var status string
		var features, images []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Subtitle, &c.Price, &status, &features, &images, &c.Reverse); err != nil {
			return nil, err
		}
		c.Status = domain.UnitStatus(status)
		if err := unmarshalList(features, &c.Features); err != nil {
			return nil, fmt.Errorf("category %s features: %w", c.ID, err)
		}
		if err := unmarshalList(images, &c.Images); err != nil {
			return nil, fmt.Errorf("category %s images: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) ListUnits(ctx context.Context) ([]domain.RoomUnit, error) {
	rows, err := r.db.QueryContext(ctx, listUnitsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// unmarshalList decodes a nullable JSON array column; NULL stays nil.
func unmarshalList(b []byte, dst *[]string) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

type scanner interface{ Scan(dest ...any) error }

func scanUnit(s scanner) (domain.RoomUnit, error) {
	var u domain.RoomUnit
	var status string
	if err := s.Scan(&u.ID, &u.CategoryID, &u.Label, &status); err != nil {
		return domain.RoomUnit{}, err
	}
	u.Status = domain.UnitStatus(status)
	return u, nil
}

// ReserveFreeUnit locks the lowest-id free unit of the category and reserves
// it in the same transaction.
func (r *Repo) ReserveFreeUnit(ctx context.Context, label string) (domain.RoomUnit, error) {
	var u domain.RoomUnit
	found, err := r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var err error
		u, err = scanUnit(tx.QueryRowContext(ctx, lockFreeUnitByLabelSQL, label))
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("lock free unit: %w", err)
		}
		return affected(tx.ExecContext(ctx, casUnitStatusSQL, string(domain.UnitReserved), u.ID, string(domain.UnitFree)))
	})
	if err != nil {
		return domain.RoomUnit{}, err
	}
	if !found {
		return domain.RoomUnit{}, domain.ErrNotFound
	}
	u.Status = domain.UnitReserved
	return u, nil
}

func (r *Repo) SetUnitStatus(ctx context.Context, id int64, from, to domain.UnitStatus) (bool, error) {
	var res sql.Result
	var err error
	if from == "" {
		res, err = r.db.ExecContext(ctx, setUnitStatusSQL, string(to), id)
	} else {
		res, err = r.db.ExecContext(ctx, casUnitStatusSQL, string(to), id, string(from))
	}
	return affected(res, err)
}

// TransitionUnit locks the lowest-id matching row before moving it, so two
// operators transitioning the same category never pick the same unit.
func (r *Repo) TransitionUnit(ctx context.Context, categoryID string, from, to domain.UnitStatus) (bool, error) {
	return r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var id int64
		err := tx.QueryRowContext(ctx, lockUnitInStatusSQL, categoryID, string(from)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("lock unit: %w", err)
		}
		return affected(tx.ExecContext(ctx, setUnitStatusSQL, string(to), id))
	})
}

// AddUnit clones the category into a new free unit labelled "<subtitle> #n".
func (r *Repo) AddUnit(ctx context.Context, categoryID string) (bool, error) {
	return r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var subtitle string
		err := tx.QueryRowContext(ctx, lockCategorySQL, categoryID).Scan(&subtitle)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		var n int
		if err := tx.QueryRowContext(ctx, countUnitsSQL, categoryID).Scan(&n); err != nil {
			return false, err
		}
		return affected(tx.ExecContext(ctx, insertUnitSQL, categoryID, fmt.Sprintf("%s #%d", subtitle, n+1)))
	})
}

// RemoveUnit deletes the newest free unit; categories with no free unit are left alone.
func (r *Repo) RemoveUnit(ctx context.Context, categoryID string) (bool, error) {
	return r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var id int64
		err := tx.QueryRowContext(ctx, lockNewestFreeUnitSQL, categoryID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return affected(tx.ExecContext(ctx, deleteFreeUnitSQL, id))
	})
}

func (r *Repo) SetCategoryPrice(ctx context.Context, categoryID string, price float64) (bool, error) {
	return affected(r.db.ExecContext(ctx, setCategoryPriceSQL, price, categoryID))
}

// ---- ledger ----

func (r *Repo) CreateTransaction(ctx context.Context, t domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransactionSQL,
		t.ID,
		t.OrderID,
		t.CategoryLabel,
		t.Amount,
		valJSON(t.Customer),
		string(t.Status),
		t.CreatedAt.UTC(),
		valJSON(t.Detail),
	)
	var me *driver.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return fmt.Errorf("%w: duplicate order %s", domain.ErrInvalidInput, t.OrderID)
	}
	return err
}

func (r *Repo) GetTransaction(ctx context.Context, orderID string) (domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, getTransactionSQL, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return t, err
}

func (r *Repo) SetTransactionStatus(ctx context.Context, orderID string, expected, status domain.TxStatus, detail []byte) (bool, error) {
	return affected(r.db.ExecContext(ctx, casTransactionStatusSQL, string(status), valJSON(detail), orderID, string(expected)))
}

func (r *Repo) DeleteTransaction(ctx context.Context, orderID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, deleteTransactionSQL, orderID))
}

func (r *Repo) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, listTransactionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var t domain.Transaction
	var status string
	var customer, detail sql.NullString
	if err := s.Scan(&t.ID, &t.OrderID, &t.CategoryLabel, &t.Amount, &customer, &status, &t.CreatedAt, &detail); err != nil {
		return domain.Transaction{}, err
	}
	t.Status = domain.TxStatus(status)
	if customer.Valid && customer.String != "" {
		t.Customer = json.RawMessage(customer.String)
	}
	if detail.Valid && detail.String != "" {
		t.Detail = json.RawMessage(detail.String)
	}
	return t, nil
}

// ---- complaints ----

func (r *Repo) CreateComplaint(ctx context.Context, c domain.Complaint) error {
	_, err := r.db.ExecContext(ctx, insertComplaintSQL,
		c.ID,
		c.FullName,
		valStr(c.DocumentType),
		c.DocumentNumber,
		c.Email,
		valStr(c.Phone),
		valStr(c.Address),
		valStr(c.Type),
		c.Description,
		c.Status,
		c.CreatedAt.UTC(),
	)
	return err
}

func (r *Repo) SetComplaintStatus(ctx context.Context, id, status string) (bool, error) {
	return affected(r.db.ExecContext(ctx, setComplaintStatusSQL, status, id))
}

// ---- helpers ----

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) inTx(ctx context.Context, fn func(*sql.Tx) (bool, error)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	ok, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return ok, nil
}
