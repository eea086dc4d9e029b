package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"
	"voice-quiz-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID       string `bun:"id,pk"`
	Position int    `bun:"position,notnull"`
	Data     string `bun:"data,type:jsonb,notnull"`
}

// SeedCatalog upserts questions in the given order. Existing ids keep their
// row but take the new position and content.
func SeedCatalog(ctx context.Context, db *bun.DB, questions []domain.Question) error {
	if _, err := domain.NewQuestionBank(questions); err != nil {
		return err
	}

	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		rows = append(rows, questionRow{ID: q.ID, Position: i + 1, Data: string(data)})
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("position = EXCLUDED.position").
			Set("data = EXCLUDED.data").
			Set("retired_at = NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}
		return nil
	})
}
