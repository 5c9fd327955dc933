package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
)

const (
	// AuditCollectionName holds the latest state of every ledger entry
	AuditCollectionName = "ledger_audit"
	// RejectionCollectionName holds commands the ledger refused
	RejectionCollectionName = "rejected_operations"
)

// entryDocument is the stored form of a ledger entry; money is kept as Decimal128
type entryDocument struct {
	Reference       string               `bson:"reference"`
	EntryID         string               `bson:"entry_id"`
	CorrelationRef  string               `bson:"correlation_ref"`
	WalletID        string               `bson:"wallet_id"`
	WalletRef       string               `bson:"wallet_ref"`
	CounterpartyID  string               `bson:"counterparty_wallet_id,omitempty"`
	CounterpartyRef string               `bson:"counterparty_ref,omitempty"`
	Type            string               `bson:"type"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Currency        string               `bson:"currency"`
	BalanceBefore   primitive.Decimal128 `bson:"balance_before"`
	BalanceAfter    primitive.Decimal128 `bson:"balance_after"`
	Status          string               `bson:"status"`
	Fee             primitive.Decimal128 `bson:"fee"`
	PaymentMethod   string               `bson:"payment_method,omitempty"`
	Description     string               `bson:"description,omitempty"`
	IdempotencyKey  string               `bson:"idempotency_key,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	CompletedAt     *time.Time           `bson:"completed_at,omitempty"`
	ProjectedAt     time.Time            `bson:"projected_at"`
}

type rejectionDocument struct {
	CommandID     string    `bson:"command_id"`
	Operation     string    `bson:"operation"`
	WalletRef     string    `bson:"wallet_ref,omitempty"`
	Amount        string    `bson:"amount,omitempty"`
	Status        string    `bson:"status"`
	ErrorKind     string    `bson:"error_kind"`
	FailureReason string    `bson:"failure_reason"`
	RequestID     string    `bson:"request_id,omitempty"`
	RejectedAt    time.Time `bson:"rejected_at"`
}

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

var _ audit.Repository = (*AuditRepository)(nil)

// EnsureIndexes creates the lookup indexes; it is safe to call on every start
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(AuditCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "correlation_ref", Value: 1}}},
	})
	if err != nil {
		r.logger.Error("Failed to create audit indexes", "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// UpsertEntry replaces the stored copy of an entry with its latest snapshot
func (r *AuditRepository) UpsertEntry(ctx context.Context, entry *ledger.Entry) error {
	doc, err := r.toDocument(entry)
	if err != nil {
		return fmt.Errorf("failed to convert ledger entry %s: %w", entry.Reference, err)
	}

	filter := bson.M{"reference": entry.Reference}
	_, err = r.db.Collection(AuditCollectionName).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert audit entry",
			"reference", entry.Reference,
			"error", err)
		return fmt.Errorf("failed to upsert audit entry: %w", err)
	}

	return nil
}

// GetByReference returns the audited copy of an entry
func (r *AuditRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	var doc entryDocument
	err := r.db.Collection(AuditCollectionName).FindOne(ctx, bson.M{"reference": reference}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get audit entry",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return fromDocument(&doc)
}

// FindByWallet returns audited entries of a wallet, newest first
func (r *AuditRepository) FindByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(AuditCollectionName).Find(ctx, bson.M{"wallet_id": walletID.String()}, opts)
	if err != nil {
		r.logger.Error("Failed to find audit entries",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for i := range docs {
		entry, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecordRejection stores a refused command with its failure reason
func (r *AuditRepository) RecordRejection(ctx context.Context, rejection *audit.Rejection) error {
	doc := rejectionDocument{
		CommandID:     rejection.CommandID,
		Operation:     rejection.Operation,
		WalletRef:     rejection.WalletRef,
		Amount:        rejection.Amount,
		Status:        string(shared.EntryStatusFailed),
		ErrorKind:     rejection.ErrorKind,
		FailureReason: rejection.FailureReason,
		RequestID:     rejection.RequestID,
		RejectedAt:    rejection.RejectedAt,
	}

	if _, err := r.db.Collection(RejectionCollectionName).InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to record rejected operation",
			"command_id", rejection.CommandID,
			"error", err)
		return fmt.Errorf("failed to record rejected operation: %w", err)
	}

	return nil
}

func (r *AuditRepository) toDocument(e *ledger.Entry) (*entryDocument, error) {
	amount, err := toDecimal128(e.Amount)
	if err != nil {
		return nil, err
	}
	before, err := toDecimal128(e.BalanceBefore)
	if err != nil {
		return nil, err
	}
	after, err := toDecimal128(e.BalanceAfter)
	if err != nil {
		return nil, err
	}
	fee, err := toDecimal128(e.Fee)
	if err != nil {
		return nil, err
	}

	doc := &entryDocument{
		Reference:       e.Reference,
		EntryID:         e.ID.String(),
		CorrelationRef:  e.CorrelationRef,
		WalletID:        e.WalletID.String(),
		WalletRef:       e.WalletRef,
		CounterpartyRef: e.CounterpartyRef,
		Type:            string(e.Type),
		Amount:          amount,
		Currency:        e.Currency,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Status:          string(e.Status),
		Fee:             fee,
		PaymentMethod:   e.PaymentMethod,
		Description:     e.Description,
		IdempotencyKey:  e.IdempotencyKey,
		CreatedAt:       e.CreatedAt,
		CompletedAt:     e.CompletedAt,
		ProjectedAt:     r.now(),
	}
	if e.CounterpartyWalletID != nil {
		doc.CounterpartyID = e.CounterpartyWalletID.String()
	}
	return doc, nil
}

func fromDocument(doc *entryDocument) (*ledger.Entry, error) {
	entry := &ledger.Entry{
		Reference:       doc.Reference,
		CorrelationRef:  doc.CorrelationRef,
		WalletRef:       doc.WalletRef,
		CounterpartyRef: doc.CounterpartyRef,
		Type:            shared.EntryType(doc.Type),
		Currency:        doc.Currency,
		Status:          shared.EntryStatus(doc.Status),
		PaymentMethod:   doc.PaymentMethod,
		Description:     doc.Description,
		IdempotencyKey:  doc.IdempotencyKey,
		CreatedAt:       doc.CreatedAt,
		CompletedAt:     doc.CompletedAt,
	}

	var err error
	if entry.ID, err = uuid.Parse(doc.EntryID); err != nil {
		return nil, fmt.Errorf("invalid entry id in audit document %s: %w", doc.Reference, err)
	}
	if entry.WalletID, err = uuid.Parse(doc.WalletID); err != nil {
		return nil, fmt.Errorf("invalid wallet id in audit document %s: %w", doc.Reference, err)
	}
	if doc.CounterpartyID != "" {
		id, err := uuid.Parse(doc.CounterpartyID)
		if err != nil {
			return nil, fmt.Errorf("invalid counterparty id in audit document %s: %w", doc.Reference, err)
		}
		entry.CounterpartyWalletID = &id
	}

	for _, field := range []struct {
		dst *decimal.Decimal
		src primitive.Decimal128
	}{
		{&entry.Amount, doc.Amount},
		{&entry.BalanceBefore, doc.BalanceBefore},
		{&entry.BalanceAfter, doc.BalanceAfter},
		{&entry.Fee, doc.Fee},
	} {
		if *field.dst, err = decimal.NewFromString(field.src.String()); err != nil {
			return nil, fmt.Errorf("invalid amount in audit document %s: %w", doc.Reference, err)
		}
	}

	return entry, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}
