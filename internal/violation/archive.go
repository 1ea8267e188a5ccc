package violation

import (
	"context"
	"time"

	"github.com/eleven-am/proctor-backend/internal/shared"
	"gorm.io/gorm"
)

// Archive persists violation events for the audit page. Writes are
// best-effort; the in-memory tracker stays authoritative for live
// accounting.
type Archive struct {
	db *gorm.DB
}

func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) Migrate() error {
	return a.db.AutoMigrate(&Record{})
}

func (a *Archive) Save(ctx context.Context, studentID, examID string, ev Event, raw []string) error {
	rec := &Record{
		ID:            shared.NewID("vio_"),
		StudentID:     studentID,
		ExamID:        examID,
		Type:          ev.Type,
		Severity:      ev.Severity,
		Message:       ev.Message,
		Source:        ev.Source,
		Confidence:    ev.Confidence,
		RawActivities: raw,
		OccurredAt:    ev.Timestamp,
	}
	return a.db.WithContext(ctx).Create(rec).Error
}

func (a *Archive) ListByExam(ctx context.Context, examID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []Record
	err := a.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (a *Archive) ListByStudent(ctx context.Context, examID, studentID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []Record
	err := a.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (a *Archive) CountSince(ctx context.Context, examID string, since time.Time) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&Record{}).
		Where("exam_id = ? AND occurred_at >= ?", examID, since).
		Count(&count).Error
	return count, err
}
