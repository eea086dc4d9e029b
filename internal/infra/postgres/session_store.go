package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"voice-quiz-service/internal/domain"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	UserID    string            `bun:"user_id,pk"`
	Payload   map[string]string `bun:"payload,type:jsonb,notnull"`
	Version   int64             `bun:"version,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

// SessionStore keeps one row per user in quiz_sessions. The version column
// turns every save into a compare-and-set, so replicas serving the same user
// cannot overwrite each other's turns.
type SessionStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) Load(ctx context.Context, userID string) (domain.Payload, int64, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}
	if row.Payload == nil {
		return domain.Payload{}, row.Version, nil
	}
	return domain.Payload(row.Payload), row.Version, nil
}

func (s *SessionStore) Save(ctx context.Context, userID string, payload domain.Payload, expected int64) error {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.NewInsert().
			Model(&sessionRow{
				UserID:    userID,
				Payload:   map[string]string(payload),
				Version:   1,
				UpdatedAt: s.now().UTC(),
			}).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
	} else {
		data, merr := json.Marshal(payload)
		if merr != nil {
			return fmt.Errorf("encode session: %w", merr)
		}
		res, err = s.db.NewUpdate().
			Model((*sessionRow)(nil)).
			Set("payload = ?::jsonb", string(data)).
			Set("version = version + 1").
			Set("updated_at = ?", s.now().UTC()).
			Where("user_id = ?", userID).
			Where("version = ?", expected).
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s is no longer at version %d", domain.ErrSessionConflict, userID, expected)
	}
	return nil
}
