package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Numeric is raw user input for a numeric form field. It accepts a JSON
// number, a JSON string or null and keeps the text exactly as entered, so a
// half-typed amount never fails request decoding.
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	*n = Numeric(trimmed)
	return nil
}

type PaymentMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Multiplier is a flat per-method surcharge placeholder. It is stored and
	// edited but not applied anywhere.
	Multiplier decimal.Decimal `json:"multiplier"`
	AccountID  string          `json:"account_id,omitempty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PaymentMethodCreateRequest struct {
	Name       string           `json:"name"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	AccountID  string           `json:"account_id,omitempty"`
}

type PaymentMethodUpdateRequest struct {
	Name       *string          `json:"name,omitempty"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	AccountID  *string          `json:"account_id,omitempty"`
	Active     *bool            `json:"active,omitempty"`
}

type InstallmentPlan struct {
	ID              int64           `json:"id"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Installments    int             `json:"installments"`
	Multiplier      decimal.Decimal `json:"multiplier"`
}

type InstallmentPlanCreateRequest struct {
	PaymentMethodID int64           `json:"payment_method_id"`
	Installments    int             `json:"installments"`
	Multiplier      decimal.Decimal `json:"multiplier"`
}

type InstallmentPlanUpdateRequest struct {
	Multiplier decimal.Decimal `json:"multiplier"`
}

type PaymentConfig struct {
	Methods []PaymentMethod   `json:"methods"`
	Plans   []InstallmentPlan `json:"plans"`
}

// PaymentLeg is one partial payment as typed into the checkout form.
type PaymentLeg struct {
	PaymentMethodID Numeric `json:"payment_method_id"`
	Installments    Numeric `json:"installments"`
	Amount          Numeric `json:"amount"`
}

type TotalsResult struct {
	BaseAmountARS      decimal.Decimal `json:"base_amount_ars"`
	PaidNoInterest     decimal.Decimal `json:"paid_no_interest"`
	Saldo              decimal.Decimal `json:"saldo"`
	InterestMethod     *PaymentLeg     `json:"interest_method,omitempty"`
	Multiplier         decimal.Decimal `json:"multiplier"`
	TotalWithSurcharge decimal.Decimal `json:"total_with_surcharge"`
	PaidARS            decimal.Decimal `json:"paid_ars"`
	RemainingARS       decimal.Decimal `json:"remaining_ars"`
}

type QuoteRequest struct {
	BaseAmountARS Numeric      `json:"base_amount_ars"`
	Payments      []PaymentLeg `json:"payments"`
}

type QuoteResponse struct {
	Totals          TotalsResult    `json:"totals"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount"`
}

type Product struct {
	ID        string          `json:"id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	StorageGB int             `json:"storage_gb"`
	Color     string          `json:"color"`
	Condition string          `json:"condition"`
	IMEI      string          `json:"imei,omitempty"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	CostUSD   decimal.Decimal `json:"cost_usd"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p Product) Description() string {
	desc := p.Brand + " " + p.Model
	if p.StorageGB > 0 {
		desc += " " + strconv.Itoa(p.StorageGB) + "GB"
	}
	if p.Color != "" {
		desc += " " + p.Color
	}
	return desc
}

type ProductCreateRequest struct {
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	StorageGB    int             `json:"storage_gb"`
	Color        string          `json:"color"`
	Condition    string          `json:"condition"`
	IMEI         string          `json:"imei"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
	InitialStock int             `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Color     *string          `json:"color,omitempty"`
	Condition *string          `json:"condition,omitempty"`
	IMEI      *string          `json:"imei,omitempty"`
	PriceUSD  *decimal.Decimal `json:"price_usd,omitempty"`
	CostUSD   *decimal.Decimal `json:"cost_usd,omitempty"`
	Active    *bool            `json:"active,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerCreateRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type CustomerUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Email  *string `json:"email,omitempty"`
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

type Provider struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type ProviderCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type PurchaseItem struct {
	ProductID   string          `json:"product_id"`
	Qty         int             `json:"qty"`
	UnitCostUSD decimal.Decimal `json:"unit_cost_usd"`
}

type Purchase struct {
	ID           string          `json:"id"`
	ProviderID   string          `json:"provider_id"`
	AccountID    string          `json:"account_id,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	TotalUSD     decimal.Decimal `json:"total_usd"`
	TotalARS     decimal.Decimal `json:"total_ars"`
	Items        []PurchaseItem  `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PurchaseCreateRequest struct {
	ProviderID   string         `json:"provider_id"`
	AccountID    string         `json:"account_id,omitempty"`
	ExchangeRate Numeric        `json:"exchange_rate"`
	Items        []PurchaseItem `json:"items"`
}

type SaleItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type SaleItem struct {
	ProductID    string          `json:"product_id"`
	Description  string          `json:"description"`
	Qty          int             `json:"qty"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	SubtotalARS  decimal.Decimal `json:"subtotal_ars"`
}

type SalePayment struct {
	PaymentMethodID   int64           `json:"payment_method_id"`
	PaymentMethodName string          `json:"payment_method_name"`
	Installments      int             `json:"installments,omitempty"`
	Multiplier        decimal.Decimal `json:"multiplier"`
	AmountARS         decimal.Decimal `json:"amount_ars"`
	AccountID         string          `json:"account_id,omitempty"`
}

type Sale struct {
	ID                      string          `json:"id"`
	IdempotencyKey          string          `json:"idempotency_key"`
	CustomerID              string          `json:"customer_id"`
	ExchangeRate            decimal.Decimal `json:"exchange_rate"`
	BaseAmountARS           decimal.Decimal `json:"base_amount_ars"`
	SurchargeARS            decimal.Decimal `json:"surcharge_ars"`
	TotalARS                decimal.Decimal `json:"total_ars"`
	PaidARS                 decimal.Decimal `json:"paid_ars"`
	InterestPaymentMethodID int64           `json:"interest_payment_method_id,omitempty"`
	Multiplier              decimal.Decimal `json:"multiplier"`
	Status                  string          `json:"status"`
	Notes                   string          `json:"notes,omitempty"`
	Items                   []SaleItem      `json:"items"`
	Payments                []SalePayment   `json:"payments"`
	CreatedAt               time.Time       `json:"created_at"`
}

type CheckoutRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	CustomerID     string            `json:"customer_id"`
	ExchangeRate   Numeric           `json:"exchange_rate"`
	Items          []SaleItemRequest `json:"items"`
	Payments       []PaymentLeg      `json:"payments"`
	Notes          string            `json:"notes"`
}

type CheckoutResponse struct {
	Sale      Sale          `json:"sale"`
	Totals    *TotalsResult `json:"totals,omitempty"`
	Duplicate bool          `json:"duplicate"`
}

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountCreateRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type AccountBalance struct {
	AccountID  string          `json:"account_id"`
	Name       string          `json:"name"`
	Currency   string          `json:"currency"`
	Movements  int64           `json:"movements"`
	BalanceARS decimal.Decimal `json:"balance_ars"`
}

type Movement struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Kind          string          `json:"kind"`
	AmountARS     decimal.Decimal `json:"amount_ars"`
	Description   string          `json:"description"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SignedAmount is the movement's effect on its account balance.
func (m Movement) SignedAmount() decimal.Decimal {
	if m.Kind == MovementKindExpense {
		return m.AmountARS.Neg()
	}
	return m.AmountARS
}

type MovementCreateRequest struct {
	AccountID   string          `json:"account_id"`
	Kind        string          `json:"kind"`
	AmountARS   decimal.Decimal `json:"amount_ars"`
	Description string          `json:"description"`
}

type MovementReport struct {
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	IncomeARS   decimal.Decimal `json:"income_ars"`
	ExpenseARS  decimal.Decimal `json:"expense_ars"`
	NetARS      decimal.Decimal `json:"net_ars"`
	Movements   []Movement      `json:"movements"`
}

type SalesReportPayment struct {
	PaymentMethodID   int64           `json:"payment_method_id"`
	PaymentMethodName string          `json:"payment_method_name"`
	Payments          int64           `json:"payments"`
	AmountARS         decimal.Decimal `json:"amount_ars"`
}

type SalesReport struct {
	From            string               `json:"from"`
	To              string               `json:"to"`
	Sales           int64                `json:"sales"`
	BaseAmountARS   decimal.Decimal      `json:"base_amount_ars"`
	SurchargeARS    decimal.Decimal      `json:"surcharge_ars"`
	TotalARS        decimal.Decimal      `json:"total_ars"`
	ByPaymentMethod []SalesReportPayment `json:"by_payment_method"`
}

const (
	CustomerStatusLead     = "lead"
	CustomerStatusCustomer = "customer"
)

const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

const (
	SaleStatusCompleted = "completed"
)

const (
	MovementKindIncome     = "income"
	MovementKindExpense    = "expense"
	MovementKindAdjustment = "adjustment"
)

const (
	ReferenceSale     = "sale"
	ReferencePurchase = "purchase"
)
