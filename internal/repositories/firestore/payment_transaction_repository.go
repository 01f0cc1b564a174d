package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/fetchkids/api/internal/domain"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
)

const paymentTransactionCollection = "payment_transactions"

// PaymentTransactionRepository persists gateway payment attempts in Firestore.
type PaymentTransactionRepository struct {
	base *pfirestore.Collection[paymentTransactionDocument]
}

// NewPaymentTransactionRepository constructs a Firestore-backed payment transaction repository.
func NewPaymentTransactionRepository(provider *pfirestore.Provider) (*PaymentTransactionRepository, error) {
	if provider == nil {
		return nil, errors.New("payment transaction repository requires firestore provider")
	}
	base := pfirestore.NewCollection[paymentTransactionDocument](provider, paymentTransactionCollection)
	return &PaymentTransactionRepository{base: base}, nil
}

// Insert creates the transaction document, failing on id collisions.
func (r *PaymentTransactionRepository) Insert(ctx context.Context, txn domain.PaymentTransaction) error {
	if r == nil || r.base == nil {
		return errors.New("payment transaction repository not initialised")
	}
	if strings.TrimSpace(txn.ID) == "" {
		return errors.New("transaction id is required")
	}

	ref, err := r.base.Doc(ctx, txn.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainTransaction(txn)); err != nil {
		return pfirestore.WrapError("payment_transactions.insert", err)
	}
	return nil
}

// Update overwrites the stored transaction document.
func (r *PaymentTransactionRepository) Update(ctx context.Context, txn domain.PaymentTransaction) error {
	if r == nil || r.base == nil {
		return errors.New("payment transaction repository not initialised")
	}
	if strings.TrimSpace(txn.ID) == "" {
		return errors.New("transaction id is required")
	}

	if err := r.base.Set(ctx, txn.ID, fromDomainTransaction(txn)); err != nil {
		return err
	}
	return nil
}

// FindByID loads a transaction by document id.
func (r *PaymentTransactionRepository) FindByID(ctx context.Context, txnID string) (domain.PaymentTransaction, error) {
	if r == nil || r.base == nil {
		return domain.PaymentTransaction{}, errors.New("payment transaction repository not initialised")
	}
	if strings.TrimSpace(txnID) == "" {
		return domain.PaymentTransaction{}, errors.New("transaction id is required")
	}

	doc, err := r.base.Get(ctx, txnID)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	return toDomainTransaction(doc.ID, doc.Data), nil
}

// FindByGatewayOrderID loads the transaction recorded for a gateway order.
func (r *PaymentTransactionRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.PaymentTransaction, error) {
	if r == nil || r.base == nil {
		return domain.PaymentTransaction{}, errors.New("payment transaction repository not initialised")
	}
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return domain.PaymentTransaction{}, errors.New("gateway order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("gatewayOrderId", "==", gatewayOrderID).Limit(1)
	})
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	if len(docs) == 0 {
		return domain.PaymentTransaction{}, pfirestore.WrapError("payment_transactions.findByGatewayOrderId", errNotFound)
	}
	return toDomainTransaction(docs[0].ID, docs[0].Data), nil
}

type paymentTransactionDocument struct {
	OrderID         string         `firestore:"orderId"`
	UserID          string         `firestore:"userId,omitempty"`
	Amount          float64        `firestore:"amount"`
	PaymentMethod   string         `firestore:"paymentMethod,omitempty"`
	GatewayOrderID  string         `firestore:"gatewayOrderId"`
	Status          string         `firestore:"status"`
	GatewayResponse map[string]any `firestore:"gatewayResponse,omitempty"`
	CreatedAt       time.Time      `firestore:"createdAt"`
	UpdatedAt       time.Time      `firestore:"updatedAt"`
}

func fromDomainTransaction(txn domain.PaymentTransaction) paymentTransactionDocument {
	doc := paymentTransactionDocument{
		OrderID:         strings.TrimSpace(txn.OrderID),
		UserID:          strings.TrimSpace(txn.UserID),
		Amount:          txn.Amount,
		PaymentMethod:   strings.TrimSpace(txn.PaymentMethod),
		GatewayOrderID:  strings.TrimSpace(txn.GatewayOrderID),
		Status:          string(txn.Status),
		GatewayResponse: txn.GatewayResponse,
		CreatedAt:       txn.CreatedAt.UTC(),
		UpdatedAt:       txn.UpdatedAt.UTC(),
	}
	if doc.Status == "" {
		doc.Status = string(domain.TransactionPending)
	}
	return doc
}

func toDomainTransaction(id string, doc paymentTransactionDocument) domain.PaymentTransaction {
	return domain.PaymentTransaction{
		ID:              id,
		OrderID:         doc.OrderID,
		UserID:          doc.UserID,
		Amount:          doc.Amount,
		PaymentMethod:   doc.PaymentMethod,
		GatewayOrderID:  doc.GatewayOrderID,
		Status:          domain.TransactionStatus(doc.Status),
		GatewayResponse: doc.GatewayResponse,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
