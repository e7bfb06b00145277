package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type SessionRepo struct{ q Querier }

func NewSessionRepo(q Querier) *SessionRepo { return &SessionRepo{q: q} }

const sessionCols = `id, terminal_id, token_hash, ip, user_agent, started_at, ended_at, active`

// CloseAll ends every active session of a terminal.
func (r *SessionRepo) CloseAll(ctx context.Context, terminalID int64) (int64, error) {
	return exec(ctx, r.q, `UPDATE terminal_sessions SET active=?, ended_at=? WHERE terminal_id=? AND active=?`,
		false, time.Now().UTC(), terminalID, true)
}

func (r *SessionRepo) Insert(ctx context.Context, s *domain.Session) error {
	s.StartedAt, s.Active = time.Now().UTC(), true
	id, err := insert(ctx, r.q, `
		INSERT INTO terminal_sessions(terminal_id, token_hash, ip, user_agent, started_at, active)
		VALUES(?, ?, ?, ?, ?, ?)`, s.TerminalID, s.TokenHash, s.IP, s.UserAgent, s.StartedAt, true)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// ActiveByHash returns the live session for a token hash.
func (r *SessionRepo) ActiveByHash(ctx context.Context, hash string) (*domain.Session, error) {
	var s domain.Session
	if err := get(ctx, r.q, &s, `SELECT `+sessionCols+` FROM terminal_sessions WHERE token_hash=? AND active=?`, hash, true); err != nil {
		return nil, notFound(err, "session")
	}
	return &s, nil
}

func (r *SessionRepo) Close(ctx context.Context, id int64) error {
	_, err := exec(ctx, r.q, `UPDATE terminal_sessions SET active=?, ended_at=? WHERE id=? AND active=?`,
		false, time.Now().UTC(), id, true)
	return err
}

func (r *SessionRepo) CountActive(ctx context.Context, terminalID int64) (int, error) {
	var n int
	err := get(ctx, r.q, &n, `SELECT COUNT(*) FROM terminal_sessions WHERE terminal_id=? AND active=?`, terminalID, true)
	return n, err
}
