package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/unimart-ng/marketplace-backend/pkg/db"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/pagination"
)

const insertSavepoint = "transactions_insert"

// Repository manages persistence for settlement transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	CreateIfAbsent(ctx context.Context, txn *models.Transaction) (*models.Transaction, bool, error)
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	List(ctx context.Context, query ListQuery) ([]models.Transaction, error)
}

// ListQuery filters a vendor's transactions, newest first.
type ListQuery struct {
	VendorID uuid.UUID
	Types    []enums.TransactionType
	Status   enums.TransactionStatus
	Since    *time.Time
	Until    *time.Time
	Cursor   *pagination.Cursor
	Limit    int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// CreateIfAbsent inserts txn unless a row with the same reference exists, in
// which case the stored row is returned with created=false. It must run inside
// a database transaction so a losing concurrent insert can roll back to the
// savepoint and read the winner.
func (r *repository) CreateIfAbsent(ctx context.Context, txn *models.Transaction) (*models.Transaction, bool, error) {
	existing, err := r.FindByReference(ctx, txn.Reference)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	conn := r.db.WithContext(ctx)
	if err := conn.SavePoint(insertSavepoint).Error; err != nil {
		return nil, false, err
	}
	if err := r.Create(ctx, txn); err != nil {
		if !dbpkg.IsUniqueViolation(err, "") {
			return nil, false, err
		}
		if rbErr := conn.RollbackTo(insertSavepoint).Error; rbErr != nil {
			return nil, false, rbErr
		}
		winner, findErr := r.FindByReference(ctx, txn.Reference)
		if findErr != nil {
			return nil, false, findErr
		}
		if winner == nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	return txn, true, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if query.VendorID != uuid.Nil {
		q = q.Where("vendor_id = ?", query.VendorID)
	}
	if len(query.Types) > 0 {
		q = q.Where("type IN ?", query.Types)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Since != nil {
		q = q.Where("created_at >= ?", query.Since.UTC())
	}
	if query.Until != nil {
		q = q.Where("created_at < ?", query.Until.UTC())
	}
	if query.Cursor != nil {
		q = q.Where("((created_at < ?) OR (created_at = ? AND id < ?))", query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var rows []models.Transaction
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
