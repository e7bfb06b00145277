package repos

import (
	"context"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenDB opens SQLite by default and Postgres for postgres:// DSNs, then ensures the schema.
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver, source := driverFor(dsn)
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one writer; also keeps :memory: databases alive on a single connection
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func driverFor(dsn string) (driver, source string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return "sqlite", dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func ensureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if isPostgres(db) {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Repos bundles every repository over one Querier: the pool or a transaction.
type Repos struct {
	q Querier

	Accounts      *AccountRepo
	Merchants     *MerchantRepo
	Shops         *ShopRepo
	Categories    *CategoryRepo
	Articles      *ArticleRepo
	Variants      *VariantRepo
	Movements     *MovementRepo
	Prices        *PriceRepo
	Sales         *SaleRepo
	Rejected      *RejectedRepo
	Transfers     *TransferRepo
	Terminals     *TerminalRepo
	Sessions      *SessionRepo
	Notifications *NotificationRepo
	Counters      *CounterRepo
}

func NewRepos(q Querier) *Repos {
	return &Repos{
		q:             q,
		Accounts:      NewAccountRepo(q),
		Merchants:     NewMerchantRepo(q),
		Shops:         NewShopRepo(q),
		Categories:    NewCategoryRepo(q),
		Articles:      NewArticleRepo(q),
		Variants:      NewVariantRepo(q),
		Movements:     NewMovementRepo(q),
		Prices:        NewPriceRepo(q),
		Sales:         NewSaleRepo(q),
		Rejected:      NewRejectedRepo(q),
		Transfers:     NewTransferRepo(q),
		Terminals:     NewTerminalRepo(q),
		Sessions:      NewSessionRepo(q),
		Notifications: NewNotificationRepo(q),
		Counters:      NewCounterRepo(q),
	}
}

// Store owns the pool. Code running inside Tx must only use the *Repos it is given:
// on SQLite the pool has a single connection and the transaction holds it.
type Store struct {
	DB *sqlx.DB
	*Repos
}

func NewStore(db *sqlx.DB) *Store { return &Store{DB: db, Repos: NewRepos(db)} }

func (s *Store) Tx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error { return s.DB.Close() }
