package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "tradeflow/internal/core/context"
	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/audit"
)

const auditTable = "sys_audit"

// DefaultCompressThreshold is the change-set size above which entries are compressed.
const DefaultCompressThreshold = 10 * 1024

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is a stored audit entry.
type AuditRow struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          id.ID           `db:"entity_id" json:"entityId"`
	Action            audit.Action    `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"userId"`
	UserEmail         string          `db:"user_email" json:"userEmail,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditLog writes the audit trail of derived documents.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
	now               func() time.Time
}

var _ audit.Recorder = (*AuditLog)(nil)

// NewAuditLog creates an audit log. A non-positive threshold selects
// DefaultCompressThreshold.
func NewAuditLog(txManager *TxManager, compressThreshold int) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record implements audit.Recorder. It writes through the transaction in ctx.
func (l *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	row := AuditRow{
		ID:         id.New(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		CreatedAt:  l.now(),
	}
	if user := appctx.GetUser(ctx); user != nil {
		row.UserID = user.UserID
		row.UserEmail = user.Email
	}
	l.pack(&row, changes)

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(auditTable).
		Columns("id", "entity_type", "entity_id", "action", "user_id", "user_email",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(row.ID, row.EntityType, row.EntityID, row.Action, row.UserID, row.UserEmail,
			row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := l.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", MapError(err))
	}
	return nil
}

// History returns the newest entries of an entity with changes decompressed.
func (l *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "entity_type", "entity_id", "action", "user_id", "user_email",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var rows []AuditRow
	if err := pgxscan.Select(ctx, l.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	for i := range rows {
		if err := l.unpack(&rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// pack stores changes inline or, above the threshold, zstd-compressed.
func (l *AuditLog) pack(row *AuditRow, changes []byte) {
	row.CompressionAlgo = CompressionNone
	if len(changes) <= l.compressThreshold {
		row.Changes = changes
		return
	}
	row.ChangesCompressed = l.encoder.EncodeAll(changes, nil)
	row.CompressionAlgo = CompressionZstd
}

func (l *AuditLog) unpack(row *AuditRow) error {
	if row.CompressionAlgo != CompressionZstd || len(row.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := l.decoder.DecodeAll(row.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress audit changes: %w", err)
	}
	row.Changes = raw
	row.ChangesCompressed = nil
	return nil
}
