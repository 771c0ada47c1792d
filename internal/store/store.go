package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"celustock/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (*domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error)

	ListInstallmentPlans(ctx context.Context, paymentMethodID int64) ([]domain.InstallmentPlan, error)
	CreateInstallmentPlan(ctx context.Context, plan domain.InstallmentPlan) (*domain.InstallmentPlan, error)
	UpdateInstallmentPlan(ctx context.Context, id int64, multiplier decimal.Decimal) (*domain.InstallmentPlan, error)
	DeleteInstallmentPlan(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListCustomers(ctx context.Context, status string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListProviders(ctx context.Context) ([]domain.Provider, error)
	GetProvider(ctx context.Context, id string) (*domain.Provider, error)
	CreateProvider(ctx context.Context, provider domain.Provider) (*domain.Provider, error)

	// CreatePurchase raises stock for every item, refreshes product cost and
	// records the expense movement (if any) in one unit of work.
	CreatePurchase(ctx context.Context, purchase domain.Purchase, expense *domain.Movement) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error)

	// CreateSale decrements stock, promotes the customer from lead and records
	// the income movements in one unit of work. It fails with
	// ErrInsufficientStock without side effects.
	CreateSale(ctx context.Context, sale domain.Sale, income []domain.Movement) (*domain.Sale, error)
	FindSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)

	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error)

	CreateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error)
	ListMovements(ctx context.Context, accountID string, from time.Time, to time.Time, limit int) ([]domain.Movement, error)
	GetAccountBalances(ctx context.Context) ([]domain.AccountBalance, error)
}
