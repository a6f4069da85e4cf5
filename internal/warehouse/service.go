package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "github.com/snowflakedb/gosnowflake"

	apperrors "fleetlogix/pkg/errors"
	"fleetlogix/pkg/models"
)

// ServerInfo is the session context reported by the warehouse after a
// successful connection.
type ServerInfo struct {
	Warehouse string
	Database  string
	Schema    string
	Version   string
}

// Service owns a warehouse connection. Callers construct it, Connect once,
// and Close when done; there is no shared global handle.
type Service struct {
	db        *sql.DB
	config    models.Warehouse
	connected bool
	log       logrus.FieldLogger
}

// NewService creates a disconnected warehouse service.
func NewService(config models.Warehouse, log logrus.FieldLogger) *Service {
	return &Service{
		config: config,
		log:    log.WithField("component", "warehouse"),
	}
}

// Connect establishes the warehouse session, retrying transient failures
// with backoff. Connecting an already connected service is a no-op.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	return apperrors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			s.config.Username,
			s.config.Password,
			s.config.Account,
			s.config.Database,
			s.config.Schema,
			s.config.Warehouse,
			s.config.Role,
		)

		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return apperrors.ConnectionError("Failed to open warehouse connection", err).
				WithContext("account", s.config.Account).
				WithContext("warehouse", s.config.Warehouse)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)

		connCtx, cancel := s.timeoutContext(ctx)
		defer cancel()

		if err := db.PingContext(connCtx); err != nil {
			db.Close()

			if strings.Contains(err.Error(), "authentication") {
				return apperrors.New(apperrors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", s.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Check if your account is locked",
					)
			}

			return apperrors.ConnectionError("Failed to connect to warehouse", err).
				WithContext("account", s.config.Account).
				AsRecoverable()
		}

		s.db = db
		s.connected = true
		s.log.WithField("account", s.config.Account).Info("Warehouse connection established")
		return nil
	})
}

// Close closes the warehouse connection.
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

// DB exposes the underlying handle for the SQL store. It is nil until
// Connect succeeds.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Ping verifies the session is still alive.
func (s *Service) Ping(ctx context.Context) error {
	if !s.connected {
		return apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse").
			WithSuggestions("Call Connect() before using the service")
	}
	pingCtx, cancel := s.timeoutContext(ctx)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Info reports the active session context, used by connectivity checks to
// confirm the configured warehouse, database and schema resolved.
func (s *Service) Info(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if !s.connected {
		return info, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	queryCtx, cancel := s.timeoutContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(queryCtx,
		"SELECT CURRENT_WAREHOUSE(), CURRENT_DATABASE(), CURRENT_SCHEMA(), CURRENT_VERSION()")
	if err := row.Scan(&info.Warehouse, &info.Database, &info.Schema, &info.Version); err != nil {
		return info, apperrors.SQLError("Failed to read session info", "SELECT CURRENT_WAREHOUSE()", err)
	}
	return info, nil
}

func (s *Service) timeoutContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	if s.config.Timeout != "" {
		if parsed, err := time.ParseDuration(s.config.Timeout); err == nil {
			timeout = parsed
		}
	}
	return context.WithTimeout(ctx, timeout)
}
