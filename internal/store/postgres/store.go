package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

// Store reads committed state from the host application's database. Beacon
// never writes to it.
type Store struct {
	pool          *pgxpool.Pool
	users         *UserRepo
	projects      *ProjectRepo
	tasks         *TaskRepo
	conversations *ConversationRepo
	messages      *MessageRepo
	comments      *CommentRepo
	attachments   *AttachmentRepo
}

// New connects a pool to dsn and verifies it with a ping.
func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:          pool,
		users:         NewUserRepo(pool),
		projects:      NewProjectRepo(pool),
		tasks:         NewTaskRepo(pool),
		conversations: NewConversationRepo(pool),
		messages:      NewMessageRepo(pool),
		comments:      NewCommentRepo(pool),
		attachments:   NewAttachmentRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) Users() domain.UserReader                 { return s.users }
func (s *Store) Projects() domain.ProjectReader           { return s.projects }
func (s *Store) Tasks() domain.TaskReader                 { return s.tasks }
func (s *Store) Conversations() domain.ConversationReader { return s.conversations }
func (s *Store) Messages() domain.MessageReader           { return s.messages }
func (s *Store) Comments() domain.CommentReader           { return s.comments }
func (s *Store) Attachments() domain.AttachmentReader     { return s.attachments }
