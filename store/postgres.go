package store

import (
	"context"
	"database/sql"
	_ "embed"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/model"
)

//go:embed migrations.sql
var migrationSQL string

// PostgresStore is a Store backed by Postgres. Multi-statement writes for a
// session are also serialized with an in-process lock.
type PostgresStore struct {
	DB *sql.DB

	// per-session mutexes; keys are session_id -> *sync.Mutex
	locks sync.Map
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, migrationSQL)
	return errors.Wrap(err, "run migrations")
}

// helper: acquire per-session lock (process-local). Returns unlock func.
func (s *PostgresStore) lockForSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// inTx runs fn in a transaction that is rolled back unless fn succeeds.
// Errors from fn are returned unchanged.
func (s *PostgresStore) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin %s", what)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", what)
	}
	committed = true
	return nil
}

// SeedProducts upserts catalog records by id.
func (s *PostgresStore) SeedProducts(ctx context.Context, products []model.Product) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin seed")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, description, category, brand, price, discount, stock, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			category = EXCLUDED.category, brand = EXCLUDED.brand,
			price = EXCLUDED.price, discount = EXCLUDED.discount,
			stock = EXCLUDED.stock, image_url = EXCLUDED.image_url`)
	if err != nil {
		return errors.Wrap(err, "prepare seed")
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.Category, p.Brand,
			p.Price, nullDiscount(p.Discount), p.Stock, p.ImageURL); err != nil {
			return errors.Wrapf(err, "seed product %d", p.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit seed")
	}
	committed = true
	return nil
}

// --- catalog ---

const productColumns = `id, name, description, category, brand, price, discount, stock, image_url`

func scanProduct(sc interface{ Scan(...any) error }) (model.Product, error) {
	var p model.Product
	var discount decimal.NullDecimal
	if err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand,
		&p.Price, &discount, &p.Stock, &p.ImageURL); err != nil {
		return model.Product{}, err
	}
	p.Discount = discountPtr(discount)
	return p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return model.Product{}, ErrProductNotFound
	}
	return p, errors.Wrapf(err, "get product %d", id)
}

func (s *PostgresStore) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE ($1 = '' OR LOWER(category) = LOWER($1))
		  AND ($2 = '' OR LOWER(brand) = LOWER($2))
		ORDER BY id`, f.Category, f.Brand)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- cart ---

const lineItemColumns = `id, session_id, product_id, quantity, updated_at`

func scanLineItem(sc interface{ Scan(...any) error }) (model.LineItem, error) {
	var it model.LineItem
	err := sc.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.Quantity, &it.UpdatedAt)
	return it, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const listItemsSQL = `
		SELECT ci.id, ci.session_id, ci.product_id, ci.quantity, ci.updated_at,
		       p.id, COALESCE(p.name, ''), COALESCE(p.description, ''), COALESCE(p.category, ''),
		       COALESCE(p.brand, ''), COALESCE(p.price, 0), p.discount, COALESCE(p.stock, 0),
		       COALESCE(p.image_url, '')
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.session_id = $1
		ORDER BY ci.id`

func (s *PostgresStore) ListItems(ctx context.Context, sessionID string) ([]model.CartLine, error) {
	return listItems(ctx, s.DB, sessionID, listItemsSQL)
}

func listItems(ctx context.Context, q queryer, sessionID, query string) ([]model.CartLine, error) {
	rows, err := q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	defer rows.Close()

	out := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		var pid sql.NullInt64
		var discount decimal.NullDecimal
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ProductID, &l.Quantity, &l.UpdatedAt,
			&pid, &l.Product.Name, &l.Product.Description, &l.Product.Category,
			&l.Product.Brand, &l.Product.Price, &discount, &l.Product.Stock,
			&l.Product.ImageURL); err != nil {
			return nil, errors.Wrap(err, "scan cart item")
		}
		if !pid.Valid {
			return nil, errors.Wrapf(ErrProductMissing, "session %s line %d product %d", sessionID, l.ID, l.ProductID)
		}
		l.Product.ID = pid.Int64
		l.Product.Discount = discountPtr(discount)
		out = append(out, l)
	}
	return out, rows.Err()
}

// touchSessionSQL records the last cart mutation of a session; the idle
// sweep reads it instead of the remaining rows.
const touchSessionSQL = `
		INSERT INTO cart_sessions (session_id, touched_at) VALUES ($1, now())
		ON CONFLICT (session_id) DO UPDATE SET touched_at = EXCLUDED.touched_at`

func (s *PostgresStore) FindBySessionAndProduct(ctx context.Context, sessionID string, productID int64) (model.LineItem, bool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+lineItemColumns+` FROM cart_items WHERE session_id=$1 AND product_id=$2`, sessionID, productID)
	it, err := scanLineItem(row)
	if err == sql.ErrNoRows {
		return model.LineItem{}, false, nil
	}
	if err != nil {
		return model.LineItem{}, false, errors.Wrap(err, "find cart item")
	}
	return it, true, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id int64) (model.LineItem, bool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+lineItemColumns+` FROM cart_items WHERE id=$1`, id)
	it, err := scanLineItem(row)
	if err == sql.ErrNoRows {
		return model.LineItem{}, false, nil
	}
	if err != nil {
		return model.LineItem{}, false, errors.Wrapf(err, "get cart item %d", id)
	}
	return it, true, nil
}

func (s *PostgresStore) AddItem(ctx context.Context, sessionID string, productID int64, qty int) (model.LineItem, error) {
	if qty < 1 {
		return model.LineItem{}, ErrInvalidQuantity
	}

	unlock := s.lockForSession(sessionID)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.LineItem{}, errors.Wrap(err, "begin add item")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, productID).Scan(&exists)
	if err == sql.ErrNoRows {
		return model.LineItem{}, ErrProductNotFound
	}
	if err != nil {
		return model.LineItem{}, errors.Wrap(err, "check product")
	}

	// upsert: an existing row for the product accumulates the quantity
	row := tx.QueryRowContext(ctx, `
		INSERT INTO cart_items (session_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING `+lineItemColumns, sessionID, productID, qty)
	it, err := scanLineItem(row)
	if err != nil {
		return model.LineItem{}, errors.Wrap(err, "upsert cart item")
	}
	if _, err := tx.ExecContext(ctx, touchSessionSQL, sessionID); err != nil {
		return model.LineItem{}, errors.Wrap(err, "touch session")
	}

	if err := tx.Commit(); err != nil {
		return model.LineItem{}, errors.Wrap(err, "commit add item")
	}
	committed = true
	return it, nil
}

func (s *PostgresStore) SetQuantity(ctx context.Context, id int64, qty int) (model.LineItem, bool, error) {
	var it model.LineItem
	removed := qty <= 0
	err := s.inTx(ctx, "set quantity", func(tx *sql.Tx) error {
		var row *sql.Row
		if removed {
			row = tx.QueryRowContext(ctx, `DELETE FROM cart_items WHERE id=$1 RETURNING `+lineItemColumns, id)
		} else {
			row = tx.QueryRowContext(ctx,
				`UPDATE cart_items SET quantity=$2, updated_at=now() WHERE id=$1 RETURNING `+lineItemColumns, id, qty)
		}
		var err error
		it, err = scanLineItem(row)
		if err == sql.ErrNoRows {
			return ErrLineItemNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "set quantity of cart item %d", id)
		}
		_, err = tx.ExecContext(ctx, touchSessionSQL, it.SessionID)
		return errors.Wrap(err, "touch session")
	})
	if err != nil {
		return model.LineItem{}, false, err
	}
	return it, removed, nil
}

func (s *PostgresStore) RemoveItem(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.inTx(ctx, "remove item", func(tx *sql.Tx) error {
		var sessionID string
		err := tx.QueryRowContext(ctx, `DELETE FROM cart_items WHERE id=$1 RETURNING session_id`, id).Scan(&sessionID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "remove cart item %d", id)
		}
		found = true
		_, err = tx.ExecContext(ctx, touchSessionSQL, sessionID)
		return errors.Wrap(err, "touch session")
	})
	return found, err
}

func (s *PostgresStore) ClearSession(ctx context.Context, sessionID string) error {
	unlock := s.lockForSession(sessionID)
	defer unlock()

	return s.inTx(ctx, "clear session", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id=$1`, sessionID); err != nil {
			return errors.Wrap(err, "clear session")
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cart_sessions WHERE session_id=$1`, sessionID)
		return errors.Wrap(err, "forget session")
	})
}

// SweepIdle evicts by cart_sessions.touched_at, which every mutation bumps,
// so removing a line keeps the rest of the cart alive. Per-session locks
// are left in place: a holder may still be using one.
func (s *PostgresStore) SweepIdle(ctx context.Context, before time.Time) (int, error) {
	rows, err := s.DB.QueryContext(ctx, `
		WITH stale AS (
			DELETE FROM cart_sessions WHERE touched_at < $1 RETURNING session_id
		)
		DELETE FROM cart_items ci USING stale
		WHERE ci.session_id = stale.session_id
		RETURNING ci.session_id`, before)
	if err != nil {
		return 0, errors.Wrap(err, "sweep idle sessions")
	}
	defer rows.Close()

	evicted := map[string]struct{}{}
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return 0, errors.Wrap(err, "scan swept session")
		}
		evicted[sid] = struct{}{}
	}
	return len(evicted), rows.Err()
}

// --- users ---

const userColumns = `id, email, name, password_hash, created_at`

func scanUser(sc interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, name, password_hash) VALUES ($1,$2,$3) RETURNING id, created_at`,
		u.Email, u.Name, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "create user")
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, errors.Wrap(err, "get user by email")
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, errors.Wrapf(err, "get user %d", id)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u model.User) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET name=$2, password_hash=$3 WHERE id=$1`, u.ID, u.Name, u.PasswordHash)
	if err != nil {
		return errors.Wrapf(err, "update user %d", u.ID)
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- orders ---

// Checkout locks the cart rows it reads and deletes exactly those rows in
// the same transaction as the order insert. A line added concurrently by
// another process is not among them and stays in the cart.
func (s *PostgresStore) Checkout(ctx context.Context, sessionID string, build OrderBuilder) (model.Order, error) {
	unlock := s.lockForSession(sessionID)
	defer unlock()

	var out model.Order
	err := s.inTx(ctx, "checkout", func(tx *sql.Tx) error {
		lines, err := listItems(ctx, tx, sessionID, listItemsSQL+` FOR UPDATE OF ci`)
		if err != nil {
			return err
		}
		o, err := build(lines)
		if err != nil {
			return err
		}
		o.SessionID = sessionID
		if err := insertOrder(ctx, tx, &o); err != nil {
			return err
		}

		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "clear ordered lines")
		}
		if _, err := tx.ExecContext(ctx, touchSessionSQL, sessionID); err != nil {
			return errors.Wrap(err, "touch session")
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// insertOrder stores the order and its items, filling in ID and CreatedAt.
func insertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (session_id, user_id, email, shipping_address, subtotal, discount, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		o.SessionID, nullInt64(o.UserID), o.Email, o.ShippingAddress, o.Subtotal, o.Discount, o.Total,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return errors.Wrap(err, "insert order")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (order_id, product_id, name, unit_price, discount, quantity, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`)
	if err != nil {
		return errors.Wrap(err, "prepare order items")
	}
	defer stmt.Close()

	for _, it := range o.Items {
		if _, err := stmt.ExecContext(ctx, o.ID, it.ProductID, it.Name, it.UnitPrice, it.Discount, it.Quantity, it.LineTotal); err != nil {
			return errors.Wrapf(err, "insert order item %d", it.ProductID)
		}
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order
	var userID sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, email, shipping_address, subtotal, discount, total, created_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.SessionID, &userID, &o.Email, &o.ShippingAddress, &o.Subtotal, &o.Discount, &o.Total, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, errors.Wrapf(err, "get order %d", id)
	}
	if userID.Valid {
		o.UserID = &userID.Int64
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT product_id, name, unit_price, discount, quantity, line_total
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return model.Order{}, errors.Wrapf(err, "list order items %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPrice, &it.Discount, &it.Quantity, &it.LineTotal); err != nil {
			return model.Order{}, errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDiscount(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func discountPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
