// Package warehouse provides the SQL execution layer over the
// supported adapters: Snowflake, Postgres and MySQL, all through
// database/sql.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/snowflakedb/gosnowflake"

	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// Supported adapter names.
const (
	AdapterSnowflake = "snowflake"
	AdapterPostgres  = "postgres"
	AdapterMySQL     = "mysql"
)

// Service executes SQL against one configured target.
type Service struct {
	db             *sql.DB
	target         models.Target
	connected      bool
	errorHandler   *errors.ErrorHandler
	circuitBreaker *errors.CircuitBreaker
}

// NewService creates an unconnected service for the target.
func NewService(target models.Target) *Service {
	return &Service{
		target:         target,
		errorHandler:   errors.GetGlobalErrorHandler(),
		circuitBreaker: errors.NewCircuitBreaker(target.Adapter, 5, 30*time.Second),
	}
}

// Target returns the configured connection profile.
func (s *Service) Target() models.Target {
	return s.target
}

// Connect opens the connection pool and verifies it with a ping.
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	return s.circuitBreaker.Execute(context.Background(), func() error {
		return errors.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
			driver, dsn, err := s.dsn()
			if err != nil {
				return err
			}

			db, err := sql.Open(driver, dsn)
			if err != nil {
				return errors.ConnectionError("Failed to open warehouse connection", err).
					WithContext("adapter", s.target.Adapter).
					WithContext("target", s.target.Name)
			}

			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(10 * time.Minute)

			pingCtx, cancel := s.getContext()
			defer cancel()

			if err := db.PingContext(pingCtx); err != nil {
				db.Close()

				if strings.Contains(err.Error(), "authentication") ||
					strings.Contains(err.Error(), "password") {
					return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
						WithContext("user", s.target.Username).
						WithSuggestions(
							"Verify your username and password",
							"Run 'martforge setup' to store fresh credentials",
						)
				}

				return errors.ConnectionError("Failed to connect to warehouse", err).
					WithContext("adapter", s.target.Adapter).
					WithContext("target", s.target.Name).
					AsRecoverable()
			}

			s.db = db
			s.connected = true
			return nil
		})
	})
}

// Close closes the connection pool.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	s.connected = false
	return nil
}

// ExecuteSQL runs one or more statements inside a transaction, rolling
// back on the first failure. Statements are split on top-level
// semicolons.
func (s *Service) ExecuteSQL(ctx context.Context, sqlText string) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse").
			WithSuggestions("Call Connect() before executing SQL")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	txHandler := s.errorHandler.NewTransactionHandler(tx.Rollback)

	return txHandler.Execute(func() error {
		if err := s.useSession(ctx, tx); err != nil {
			return err
		}

		statements := SplitStatements(sqlText)
		for i, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				sqlErr := errors.SQLError(
					fmt.Sprintf("Failed to execute statement %d", i+1),
					stmt,
					err,
				).WithContext("statement_index", i+1).
					WithContext("total_statements", len(statements))

				errStr := err.Error()
				if strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "not found") {
					sqlErr.Code = errors.ErrCodeSQLObjectNotFound
					sqlErr.WithSuggestions(
						"Verify the object exists in the target database/schema",
						"Run upstream models first, or run without a selection",
					)
				} else if strings.Contains(errStr, "syntax error") {
					sqlErr.Code = errors.ErrCodeSQLSyntax
					sqlErr.WithSuggestions(
						"Check SQL syntax near the error location",
						"Verify the syntax is supported by the target adapter",
					)
				}

				return sqlErr
			}
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction")
		}
		return nil
	})
}

// Exec runs a single parameterized statement outside a transaction.
// Placeholders use '?' and are rebound for the adapter.
func (s *Service) Exec(ctx context.Context, query string, args ...interface{}) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	if _, err := s.db.ExecContext(ctx, s.Rebind(query), args...); err != nil {
		return errors.SQLError("Failed to execute statement", query, err)
	}
	return nil
}

// Query runs a query and returns the rows.
func (s *Service) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	rows, err := s.db.QueryContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return nil, errors.SQLError("Query failed", query, err)
	}
	return rows, nil
}

// QueryCount runs a query expected to return a single integer.
func (s *Service) QueryCount(ctx context.Context, query string) (int64, error) {
	if !s.connected {
		return 0, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.SQLError("Count query failed", query, err)
	}
	return n, nil
}

// BeginTransaction starts a transaction for callers that manage their
// own statement batching.
func (s *Service) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	return s.db.BeginTx(ctx, nil)
}

// TestConnection connects if needed and pings the target.
func (s *Service) TestConnection() error {
	if !s.connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	ctx, cancel := s.getContext()
	defer cancel()
	return s.db.PingContext(ctx)
}

// Rebind converts '?' placeholders to the adapter's native style.
// Snowflake and MySQL use '?' already; Postgres uses $1..$n.
func (s *Service) Rebind(query string) string {
	if s.target.Adapter != AdapterPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	inString := false
	for _, ch := range query {
		if ch == '\'' {
			inString = !inString
		}
		if ch == '?' && !inString {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	if s.target.Timeout != "" {
		if d, err := time.ParseDuration(s.target.Timeout); err == nil {
			timeout = d
		}
	}
	return context.WithTimeout(context.Background(), timeout)
}

// useSession points the transaction at the target database and schema
// in whatever way the adapter expresses that.
func (s *Service) useSession(ctx context.Context, tx *sql.Tx) error {
	var stmts []string
	switch s.target.Adapter {
	case AdapterSnowflake:
		if s.target.Database != "" {
			stmts = append(stmts, fmt.Sprintf("USE DATABASE %s", s.target.Database))
		}
		if s.target.Schema != "" {
			stmts = append(stmts, fmt.Sprintf("USE SCHEMA %s", s.target.Schema))
		}
	case AdapterPostgres:
		if s.target.Schema != "" {
			stmts = append(stmts, fmt.Sprintf("SET search_path TO %s", s.target.Schema))
		}
	case AdapterMySQL:
		// Database selection happens in the DSN.
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.SQLError("Failed to set session context", stmt, err)
		}
	}
	return nil
}

func (s *Service) dsn() (driver, dsn string, err error) {
	t := s.target
	switch t.Adapter {
	case AdapterSnowflake:
		return "snowflake", fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			t.Username, t.Password, t.Account, t.Database, t.Schema, t.Warehouse, t.Role), nil
	case AdapterPostgres:
		port := t.Port
		if port == 0 {
			port = 5432
		}
		return "pgx", fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=prefer",
			t.Username, t.Password, t.Host, port, t.Database), nil
	case AdapterMySQL:
		port := t.Port
		if port == 0 {
			port = 3306
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			t.Username, t.Password, t.Host, port, t.Database), nil
	default:
		return "", "", errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown adapter %q", t.Adapter)).
			WithSuggestions("Supported adapters: snowflake, postgres, mysql")
	}
}

// ValidateTarget checks that a target carries the fields its adapter
// needs.
func ValidateTarget(t models.Target) error {
	if t.Username == "" {
		return fmt.Errorf("username is required")
	}
	if t.Database == "" {
		return fmt.Errorf("database is required")
	}
	switch t.Adapter {
	case AdapterSnowflake:
		if t.Account == "" {
			return fmt.Errorf("account is required for snowflake targets")
		}
		if t.Warehouse == "" {
			return fmt.Errorf("warehouse is required for snowflake targets")
		}
	case AdapterPostgres, AdapterMySQL:
		if t.Host == "" {
			return fmt.Errorf("host is required for %s targets", t.Adapter)
		}
	default:
		return fmt.Errorf("unknown adapter %q", t.Adapter)
	}
	return nil
}

// SplitStatements splits SQL text on semicolons that are outside
// string literals.
func SplitStatements(sqlText string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := rune(0)

	for i, char := range sqlText {
		if !inString {
			if char == '\'' || char == '"' {
				inString = true
				stringChar = char
			} else if char == ';' {
				if i == 0 || sqlText[i-1] != '\\' {
					statements = append(statements, current.String())
					current.Reset()
					continue
				}
			}
		} else {
			if char == stringChar && (i == 0 || sqlText[i-1] != '\\') {
				inString = false
			}
		}
		current.WriteRune(char)
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}
	return statements
}
