package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
	"celustock/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, multiplier, COALESCE(account_id, ''), active, created_at
		FROM payment_methods
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0, 8)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Multiplier, &m.AccountID, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, id int64) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, multiplier, COALESCE(account_id, ''), active, created_at
		FROM payment_methods
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Multiplier, &m.AccountID, &m.Active, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if method.Name == "" {
		return nil, store.ErrInvalidInput
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO payment_methods (name, multiplier, account_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, method.Name, method.Multiplier, nullString(method.AccountID), method.Active, method.CreatedAt).Scan(&method.ID)
	if err != nil {
		return nil, translateError(err)
	}
	created := method
	return &created, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE payment_methods
		SET name = $2, multiplier = $3, account_id = $4, active = $5
		WHERE id = $1
		RETURNING created_at
	`, method.ID, method.Name, method.Multiplier, nullString(method.AccountID), method.Active).Scan(&method.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translateError(err)
	}
	method.CreatedAt = method.CreatedAt.UTC()
	updated := method
	return &updated, nil
}

func (s *Store) ListInstallmentPlans(ctx context.Context, paymentMethodID int64) ([]domain.InstallmentPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_method_id, installments, multiplier
		FROM installment_plans
		WHERE $1::bigint = 0 OR payment_method_id = $1
		ORDER BY id
	`, paymentMethodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]domain.InstallmentPlan, 0, 16)
	for rows.Next() {
		var p domain.InstallmentPlan
		if err := rows.Scan(&p.ID, &p.PaymentMethodID, &p.Installments, &p.Multiplier); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *Store) CreateInstallmentPlan(ctx context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO installment_plans (payment_method_id, installments, multiplier)
		VALUES ($1,$2,$3)
		RETURNING id
	`, plan.PaymentMethodID, plan.Installments, plan.Multiplier).Scan(&plan.ID)
	if err != nil {
		return nil, translateError(err)
	}
	created := plan
	return &created, nil
}

func (s *Store) UpdateInstallmentPlan(ctx context.Context, id int64, multiplier decimal.Decimal) (*domain.InstallmentPlan, error) {
	var p domain.InstallmentPlan
	err := s.db.QueryRowContext(ctx, `
		UPDATE installment_plans
		SET multiplier = $2
		WHERE id = $1
		RETURNING id, payment_method_id, installments, multiplier
	`, id, multiplier).Scan(&p.ID, &p.PaymentMethodID, &p.Installments, &p.Multiplier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translateError(err)
	}
	return &p, nil
}

func (s *Store) DeleteInstallmentPlan(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM installment_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const productColumns = `id, brand, model, storage_gb, color, condition, COALESCE(imei, ''), price_usd, cost_usd, stock, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Brand, &p.Model, &p.StorageGB, &p.Color, &p.Condition, &p.IMEI, &p.PriceUSD, &p.CostUSD, &p.Stock, &p.Active, &p.CreatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true OR $1::boolean
		ORDER BY brand, model
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Brand == "" || product.Model == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, brand, model, storage_gb, color, condition, imei, price_usd, cost_usd, stock, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, product.Brand, product.Model, product.StorageGB, product.Color, product.Condition,
		nullString(product.IMEI), product.PriceUSD, product.CostUSD, product.Stock, product.Active, product.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET color = $2, condition = $3, imei = $4, price_usd = $5, cost_usd = $6, active = $7
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID, product.Color, product.Condition, nullString(product.IMEI), product.PriceUSD, product.CostUSD, product.Active)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translateError(err)
	}
	return &updated, nil
}

const customerColumns = `id, name, phone, email, status, notes, created_at, updated_at`

func scanCustomer(row scanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, status string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE $1::text = '' OR status = $1
		ORDER BY lower(name)
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Status, customer.Notes, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, status = $5, notes = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+customerColumns,
		customer.ID, customer.Name, customer.Phone, customer.Email, customer.Status, customer.Notes, customer.UpdatedAt)
	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translateError(err)
	}
	return &updated, nil
}

func (s *Store) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, created_at
		FROM providers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := make([]domain.Provider, 0, 16)
	for rows.Next() {
		var p domain.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return providers, nil
}

func (s *Store) GetProvider(ctx context.Context, id string) (*domain.Provider, error) {
	var p domain.Provider
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, created_at
		FROM providers
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProvider(ctx context.Context, provider domain.Provider) (*domain.Provider, error) {
	if provider.ID == "" || provider.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, provider.ID, provider.Name, provider.Phone, provider.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	created := provider
	return &created, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase, expense *domain.Movement) (*domain.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (id, provider_id, account_id, exchange_rate, total_usd, total_ars, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, purchase.ID, purchase.ProviderID, nullString(purchase.AccountID), purchase.ExchangeRate,
		purchase.TotalUSD, purchase.TotalARS, purchase.CreatedAt); err != nil {
		return nil, translateError(err)
	}

	for _, item := range purchase.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, qty, unit_cost_usd)
			VALUES ($1,$2,$3,$4)
		`, purchase.ID, item.ProductID, item.Qty, item.UnitCostUSD); err != nil {
			return nil, translateError(err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2, cost_usd = $3
			WHERE id = $1
		`, item.ProductID, item.Qty, item.UnitCostUSD)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	if expense != nil {
		if err := insertMovement(ctx, tx, *expense); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, COALESCE(account_id, ''), exchange_rate, total_usd, total_ars, created_at
		FROM purchases
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, limit)
	index := make(map[string]int, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.AccountID, &p.ExchangeRate, &p.TotalUSD, &p.TotalARS, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.Items = make([]domain.PurchaseItem, 0, 2)
		index[p.ID] = len(purchases)
		ids = append(ids, p.ID)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return purchases, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT purchase_id, product_id, qty, unit_cost_usd
		FROM purchase_items
		WHERE purchase_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var purchaseID string
		var item domain.PurchaseItem
		if err := itemRows.Scan(&purchaseID, &item.ProductID, &item.Qty, &item.UnitCostUSD); err != nil {
			return nil, err
		}
		if i, ok := index[purchaseID]; ok {
			purchases[i].Items = append(purchases[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, income []domain.Movement) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, translateError(err)
	}
	defer func() { _ = tx.Rollback() }()

	var interestMethodID any
	if sale.InterestPaymentMethodID > 0 {
		interestMethodID = sale.InterestPaymentMethodID
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, idempotency_key, customer_id, exchange_rate, base_amount_ars, surcharge_ars,
			total_ars, paid_ars, interest_payment_method_id, multiplier, status, notes, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sale.ID, sale.IdempotencyKey, sale.CustomerID, sale.ExchangeRate, sale.BaseAmountARS, sale.SurchargeARS,
		sale.TotalARS, sale.PaidARS, interestMethodID, sale.Multiplier, sale.Status, sale.Notes, sale.CreatedAt); err != nil {
		return nil, translateError(err)
	}

	for _, item := range sale.Items {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, item.ProductID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, translateError(err)
		}
		if stock < item.Qty {
			return nil, store.ErrInsufficientStock
		}
		if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1`, item.ProductID, item.Qty); err != nil {
			return nil, translateError(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, description, qty, unit_price_usd, subtotal_ars)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, item.ProductID, item.Description, item.Qty, item.UnitPriceUSD, item.SubtotalARS); err != nil {
			return nil, translateError(err)
		}
	}

	for i, p := range sale.Payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_payments (sale_id, position, payment_method_id, payment_method_name, installments, multiplier, amount_ars, account_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, sale.ID, i, p.PaymentMethodID, p.PaymentMethodName, p.Installments, p.Multiplier, p.AmountARS, nullString(p.AccountID)); err != nil {
			return nil, translateError(err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`, sale.CustomerID, domain.CustomerStatusCustomer, sale.CreatedAt, domain.CustomerStatusLead); err != nil {
		return nil, translateError(err)
	}

	for _, mv := range income {
		if err := insertMovement(ctx, tx, mv); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err)
	}
	created := sale
	return &created, nil
}

const saleColumns = `id, idempotency_key, customer_id, exchange_rate, base_amount_ars, surcharge_ars, total_ars, paid_ars,
	COALESCE(interest_payment_method_id, 0), multiplier, status, notes, created_at`

func scanSale(row scanner) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.IdempotencyKey, &sale.CustomerID, &sale.ExchangeRate, &sale.BaseAmountARS,
		&sale.SurchargeARS, &sale.TotalARS, &sale.PaidARS, &sale.InterestPaymentMethodID, &sale.Multiplier,
		&sale.Status, &sale.Notes, &sale.CreatedAt)
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, err
}

func (s *Store) findSale(ctx context.Context, query string, arg string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE `+query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := s.loadSaleLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) FindSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id = $1", id)
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	return s.findSale(ctx, "idempotency_key = $1", key)
}

func (s *Store) loadSaleLines(ctx context.Context, sale *domain.Sale) error {
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT product_id, description, qty, unit_price_usd, subtotal_ars
		FROM sale_items
		WHERE sale_id = $1
	`, sale.ID)
	if err != nil {
		return err
	}
	defer itemRows.Close()

	sale.Items = make([]domain.SaleItem, 0, 2)
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ProductID, &item.Description, &item.Qty, &item.UnitPriceUSD, &item.SubtotalARS); err != nil {
			return err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT payment_method_id, payment_method_name, installments, multiplier, amount_ars, COALESCE(account_id, '')
		FROM sale_payments
		WHERE sale_id = $1
		ORDER BY position
	`, sale.ID)
	if err != nil {
		return err
	}
	defer paymentRows.Close()

	sale.Payments = make([]domain.SalePayment, 0, 2)
	for paymentRows.Next() {
		var p domain.SalePayment
		if err := paymentRows.Scan(&p.PaymentMethodID, &p.PaymentMethodName, &p.Installments, &p.Multiplier, &p.AmountARS, &p.AccountID); err != nil {
			return err
		}
		sale.Payments = append(sale.Payments, p)
	}
	return paymentRows.Err()
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range sales {
		if err := s.loadSaleLines(ctx, &sales[i]); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, currency, created_at
		FROM accounts
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, 8)
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, currency, created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	if account.ID == "" || account.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, created_at)
		VALUES ($1,$2,$3,$4)
	`, account.ID, account.Name, account.Currency, account.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	created := account
	return &created, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMovement(ctx context.Context, db execer, mv domain.Movement) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO movements (id, account_id, kind, amount_ars, description, reference_type, reference_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, mv.ID, mv.AccountID, mv.Kind, mv.AmountARS, mv.Description, mv.ReferenceType, mv.ReferenceID, mv.CreatedAt)
	return translateError(err)
}

func (s *Store) CreateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error) {
	if err := insertMovement(ctx, s.db, movement); err != nil {
		return nil, err
	}
	created := movement
	return &created, nil
}

func (s *Store) ListMovements(ctx context.Context, accountID string, from time.Time, to time.Time, limit int) ([]domain.Movement, error) {
	if limit < 1 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, amount_ars, description, reference_type, reference_id, created_at
		FROM (
			SELECT *
			FROM movements
			WHERE ($1::text = '' OR account_id = $1) AND created_at >= $2 AND created_at < $3
			ORDER BY created_at DESC
			LIMIT $4
		) recent
		ORDER BY created_at ASC
	`, accountID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0, 64)
	for rows.Next() {
		var mv domain.Movement
		if err := rows.Scan(&mv.ID, &mv.AccountID, &mv.Kind, &mv.AmountARS, &mv.Description, &mv.ReferenceType, &mv.ReferenceID, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.CreatedAt = mv.CreatedAt.UTC()
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) GetAccountBalances(ctx context.Context) ([]domain.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			a.id,
			a.name,
			a.currency,
			COUNT(m.id),
			COALESCE(SUM(CASE WHEN m.kind = $1 THEN -m.amount_ars ELSE m.amount_ars END), 0)
		FROM accounts a
		LEFT JOIN movements m ON m.account_id = a.id
		GROUP BY a.id, a.name, a.currency
		ORDER BY a.name
	`, domain.MovementKindExpense)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make([]domain.AccountBalance, 0, 8)
	for rows.Next() {
		var b domain.AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Name, &b.Currency, &b.Movements, &b.BalanceARS); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// translateError maps constraint violations and serialization failures
// onto the store sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrNotFound
		case "23514", "23502":
			return store.ErrInvalidInput
		case "40001", "40P01":
			// Lost a serializable race, usually two checkouts of the same stock.
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
		}
	}
	return err
}
