package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quizlink-service/internal/domain"
)

// Store implements link, result and quiz persistence on top of bun.
type Store struct {
	db *bun.DB
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	quiz := row.Data
	quiz.ID = row.ID
	return quiz, nil
}

// SaveQuiz inserts the quiz or replaces its content.
func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	row := quizRow{ID: quiz.ID, Data: quiz}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func (s *Store) QuizIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*quizRow)(nil)).Column("id").Order("id ASC").Scan(ctx, &ids)
	return ids, err
}

func (s *Store) CreateLink(ctx context.Context, link domain.QuizLink) error {
	row := linkRow{
		ID:         link.ID,
		AdminID:    link.AdminID,
		QuizID:     link.QuizID,
		MaxAllowed: link.MaxAllowed,
		CreatedAt:  link.CreatedAt.UTC(),
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("create link %s: %w", link.ID, err)
		}
		for _, p := range link.Participants {
			prow := newParticipantRow(link.ID, p)
			if _, err := tx.NewInsert().Model(&prow).Exec(ctx); err != nil {
				return err
			}
		}
		if len(link.Participants) > 0 {
			_, err := tx.NewUpdate().
				Table("quiz_links").
				Set("participant_count = ?", len(link.Participants)).
				Where("id = ?", link.ID).
				Exec(ctx)
			return err
		}
		return nil
	})
}

func (s *Store) GetLink(ctx context.Context, linkID string) (domain.QuizLink, error) {
	return loadLink(ctx, s.db, linkID)
}

// Admit inserts the participant and claims a seat in one transaction. The seat claim is a
// conditional update on participant_count, so concurrent admissions can never overfill a link.
func (s *Store) Admit(ctx context.Context, linkID string, participant domain.Participant) (domain.QuizLink, bool, error) {
	var (
		link     domain.QuizLink
		admitted bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*linkRow)(nil)).Where("id = ?", linkID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrLinkNotFound
		}

		participant.SubmissionID = ""
		prow := newParticipantRow(linkID, participant)
		res, err := tx.NewInsert().
			Model(&prow).
			On("CONFLICT (link_id, student_key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			res, err = tx.NewUpdate().
				Table("quiz_links").
				Set("participant_count = participant_count + 1").
				Where("id = ?", linkID).
				Where("participant_count < max_allowed").
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrCapacityExceeded
			}
			admitted = true
		}

		link, err = loadLink(ctx, tx, linkID)
		return err
	})
	if err != nil {
		return domain.QuizLink{}, false, err
	}
	return link, admitted, nil
}

func (s *Store) CommitSubmission(ctx context.Context, linkID string, record domain.ResultRecord) error {
	key := record.Student.Key()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Table("link_participants").
			Set("submission_id = ?", record.SubmissionID).
			Where("link_id = ?", linkID).
			Where("student_key = ?", key).
			Where("submission_id IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return explainMissedCommit(ctx, tx, linkID, key)
		}

		row := newResultRow(record)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("save result %s: %w", record.SubmissionID, err)
		}
		return nil
	})
}

func explainMissedCommit(ctx context.Context, tx bun.Tx, linkID, key string) error {
	linkExists, err := tx.NewSelect().Model((*linkRow)(nil)).Where("id = ?", linkID).Exists(ctx)
	if err != nil {
		return err
	}
	if !linkExists {
		return domain.ErrLinkNotFound
	}
	admitted, err := tx.NewSelect().
		Model((*participantRow)(nil)).
		Where("link_id = ?", linkID).
		Where("student_key = ?", key).
		Exists(ctx)
	if err != nil {
		return err
	}
	if admitted {
		return domain.ErrDuplicateSubmission
	}
	return domain.ErrCapacityExceeded
}

func (s *Store) ListLinksByAdmin(ctx context.Context, adminID string) ([]domain.QuizLink, error) {
	var rows []linkRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("admin_id = ?", adminID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizLink, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var participants []participantRow
	err = s.db.NewSelect().
		Model(&participants).
		Where("link_id IN (?)", bun.In(ids)).
		Order("admitted_at ASC", "student_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byLink := make(map[string][]participantRow, len(rows))
	for _, p := range participants {
		byLink[p.LinkID] = append(byLink[p.LinkID], p)
	}
	for _, r := range rows {
		out = append(out, r.toDomain(byLink[r.ID]))
	}
	return out, nil
}

func loadLink(ctx context.Context, db bun.IDB, linkID string) (domain.QuizLink, error) {
	var row linkRow
	err := db.NewSelect().Model(&row).Where("id = ?", linkID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizLink{}, domain.ErrLinkNotFound
	}
	if err != nil {
		return domain.QuizLink{}, err
	}
	var participants []participantRow
	err = db.NewSelect().
		Model(&participants).
		Where("link_id = ?", linkID).
		Order("admitted_at ASC", "student_key ASC").
		Scan(ctx)
	if err != nil {
		return domain.QuizLink{}, err
	}
	return row.toDomain(participants), nil
}

func (s *Store) SaveResult(ctx context.Context, record domain.ResultRecord) error {
	row := newResultRow(record)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

func (s *Store) GetResult(ctx context.Context, submissionID string) (domain.ResultRecord, error) {
	var row resultRow
	err := s.db.NewSelect().Model(&row).Where("submission_id = ?", submissionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ResultRecord{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.ResultRecord{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListResultsByQuiz(ctx context.Context, quizID string) ([]domain.ResultRecord, error) {
	return s.listResults(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("quiz_id = ?", quizID)
	})
}

func (s *Store) ListResultsByAdmin(ctx context.Context, adminID string) ([]domain.ResultRecord, error) {
	return s.listResults(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("admin_id = ?", adminID)
	})
}

func (s *Store) ListResults(ctx context.Context) ([]domain.ResultRecord, error) {
	return s.listResults(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

// PageResultsByQuiz returns one window of a quiz's results and the total count.
func (s *Store) PageResultsByQuiz(ctx context.Context, quizID string, offset, limit int) ([]domain.ResultRecord, int, error) {
	var rows []resultRow
	total, err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("submitted_at ASC", "submission_id ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return toRecords(rows), total, nil
}

func (s *Store) listResults(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.ResultRecord, error) {
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows).Order("submitted_at ASC", "submission_id ASC")
	if err := filter(q).Scan(ctx); err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func toRecords(rows []resultRow) []domain.ResultRecord {
	out := make([]domain.ResultRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
