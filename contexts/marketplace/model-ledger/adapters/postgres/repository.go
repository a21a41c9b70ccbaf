package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/shared/events"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	ledgerStateID = 1
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// EnsureState creates the singleton ledger state row on first boot. The
// operator identity is fixed here and never updated afterwards.
func (r *Repository) EnsureState(ctx context.Context, operatorID string) error {
	row := ledgerStateModel{
		ID:         ledgerStateID,
		OperatorID: operatorID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) GetModel(ctx context.Context, modelID uint64) (entities.Model, error) {
	var row modelRow
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Model{}, domainerrors.ErrModelNotFound
		}
		return entities.Model{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListModels(ctx context.Context) ([]entities.Model, error) {
	var rows []modelRow
	if err := r.db.WithContext(ctx).
		Order("model_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Model, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateModelWithOutbox(
	ctx context.Context,
	input ports.CreateModelInput,
	event ports.ModelListedEvent,
) (entities.Model, error) {
	var created modelRow

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The state row lock serializes id allocation; ids stay dense.
		state, err := lockState(tx)
		if err != nil {
			return err
		}

		now := event.OccurredAt.UTC()
		created = modelRow{
			ModelID:     state.NextModelID,
			Name:        input.Name,
			Description: input.Description,
			PriceCents:  input.PriceCents,
			CreatorID:   input.CreatorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&created).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}

		if err := tx.Model(&ledgerStateModel{}).
			Where("id = ?", ledgerStateID).
			Update("next_model_id", state.NextModelID+1).
			Error; err != nil {
			return err
		}

		event.ModelID = created.ModelID
		return insertOutbox(tx, event)
	})
	if err != nil {
		return entities.Model{}, err
	}
	return created.toEntity(), nil
}

func (r *Repository) RecordPurchaseWithOutbox(
	ctx context.Context,
	modelID uint64,
	buyerID string,
	paymentCents int64,
	event ports.ModelPurchasedEvent,
) (entities.Model, error) {
	var updated modelRow

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockModel(tx, modelID)
		if err != nil {
			return err
		}
		if row.BuyerID != "" {
			return domainerrors.ErrModelAlreadySold
		}
		if paymentCents < row.PriceCents {
			return domainerrors.ErrInsufficientPayment
		}

		// The empty-buyer guard in the WHERE clause keeps the slot
		// write-once even if the row lock is ever weakened.
		result := tx.Model(&modelRow{}).
			Where("model_id = ? AND buyer_id = ''", modelID).
			Updates(map[string]any{
				"buyer_id":   buyerID,
				"updated_at": event.OccurredAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrModelAlreadySold
		}

		state, err := lockState(tx)
		if err != nil {
			return err
		}
		if err := tx.Model(&ledgerStateModel{}).
			Where("id = ?", ledgerStateID).
			Update("custody_balance_cents", state.CustodyBalanceCents+paymentCents).
			Error; err != nil {
			return err
		}

		if err := insertOutbox(tx, event); err != nil {
			return err
		}

		row.BuyerID = buyerID
		row.UpdatedAt = event.OccurredAt.UTC()
		updated = row
		return nil
	})
	if err != nil {
		return entities.Model{}, err
	}
	return updated.toEntity(), nil
}

func (r *Repository) RecordRatingWithOutbox(
	ctx context.Context,
	modelID uint64,
	buyerID string,
	score int,
	event ports.ModelRatedEvent,
) (entities.Model, error) {
	var updated modelRow

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockModel(tx, modelID)
		if err != nil {
			return err
		}
		if row.BuyerID != buyerID {
			return domainerrors.ErrOnlyBuyerCanRate
		}
		if row.RatingCount > 0 {
			return domainerrors.ErrModelAlreadyRated
		}

		if err := tx.Model(&modelRow{}).
			Where("model_id = ?", modelID).
			Updates(map[string]any{
				"rating_sum":   row.RatingSum + int64(score),
				"rating_count": row.RatingCount + 1,
				"updated_at":   event.OccurredAt.UTC(),
			}).
			Error; err != nil {
			return err
		}

		if err := insertOutbox(tx, event); err != nil {
			return err
		}

		row.RatingSum += int64(score)
		row.RatingCount++
		row.UpdatedAt = event.OccurredAt.UTC()
		updated = row
		return nil
	})
	if err != nil {
		return entities.Model{}, err
	}
	return updated.toEntity(), nil
}

func (r *Repository) CustodyBalance(ctx context.Context) (int64, error) {
	var state ledgerStateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", ledgerStateID).
		First(&state).
		Error
	if err != nil {
		return 0, err
	}
	return state.CustodyBalanceCents, nil
}

func (r *Repository) WithdrawWithOutbox(
	ctx context.Context,
	operatorID string,
	transfer func(amountCents int64) error,
	event ports.FundsWithdrawnEvent,
) (int64, error) {
	var amount int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := lockState(tx)
		if err != nil {
			return err
		}
		amount = state.CustodyBalanceCents

		if err := tx.Model(&ledgerStateModel{}).
			Where("id = ?", ledgerStateID).
			Update("custody_balance_cents", int64(0)).
			Error; err != nil {
			return err
		}

		event.AmountCents = amount
		if err := insertOutbox(tx, event); err != nil {
			return err
		}

		// Transfer runs inside the transaction: on failure the balance
		// reset and the outbox row roll back together.
		if err := transfer(amount); err != nil {
			return fmt.Errorf("%w: %v", domainerrors.ErrPayoutFailed, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", key).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return row.toPort(), true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModelFromPort(record)
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", record.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func lockState(tx *gorm.DB) (ledgerStateModel, error) {
	var state ledgerStateModel
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ledgerStateID).
		First(&state).
		Error
	if err != nil {
		return ledgerStateModel{}, err
	}
	return state, nil
}

func lockModel(tx *gorm.DB, modelID uint64) (modelRow, error) {
	var row modelRow
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("model_id = ?", modelID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return modelRow{}, domainerrors.ErrModelNotFound
		}
		return modelRow{}, err
	}
	return row, nil
}

type enveloper interface {
	Envelope() (events.Envelope, error)
}

func insertOutbox(tx *gorm.DB, event enveloper) error {
	envelope, err := event.Envelope()
	if err != nil {
		return err
	}
	payload, err := events.Encode(envelope)
	if err != nil {
		return err
	}

	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt,
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

type modelRow struct {
	ModelID     uint64    `gorm:"column:model_id;primaryKey"`
	Name        string    `gorm:"column:name"`
	Description string    `gorm:"column:description"`
	PriceCents  int64     `gorm:"column:price_cents"`
	CreatorID   string    `gorm:"column:creator_id"`
	BuyerID     string    `gorm:"column:buyer_id"`
	RatingSum   int64     `gorm:"column:rating_sum"`
	RatingCount int64     `gorm:"column:rating_count"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (modelRow) TableName() string {
	return "models"
}

func (m modelRow) toEntity() entities.Model {
	return entities.Model{
		ModelID:     m.ModelID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		CreatorID:   m.CreatorID,
		BuyerID:     m.BuyerID,
		RatingSum:   m.RatingSum,
		RatingCount: m.RatingCount,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type ledgerStateModel struct {
	ID                  int    `gorm:"column:id;primaryKey"`
	NextModelID         uint64 `gorm:"column:next_model_id"`
	CustodyBalanceCents int64  `gorm:"column:custody_balance_cents"`
	OperatorID          string `gorm:"column:operator_id"`
}

func (ledgerStateModel) TableName() string {
	return "ledger_state"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ModelID     uint64    `gorm:"column:model_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "model_ledger_idempotency"
}

func idempotencyModelFromPort(record ports.IdempotencyRecord) idempotencyModel {
	return idempotencyModel{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		ModelID:     record.ModelID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:         m.Key,
		RequestHash: m.RequestHash,
		ModelID:     m.ModelID,
		ExpiresAt:   m.ExpiresAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "model_ledger_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ModelRepository = (*Repository)(nil)
var _ ports.TreasuryRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
