package database

import (
	"context"
	"database/sql"
)

// schema creates the three authentication tables. Statements are
// idempotent so startup can run them unconditionally. All timestamps are
// DATETIME holding UTC wall time; the DSN's loc=UTC keeps the driver
// consistent with that.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_auth (
		user_id                VARCHAR(36)  NOT NULL,
		username               VARCHAR(64)  NOT NULL,
		email                  VARCHAR(255) NOT NULL,
		password_hash          CHAR(64)     NOT NULL,
		salt                   CHAR(64)     NOT NULL,
		is_admin               TINYINT(1)   NOT NULL DEFAULT 0,
		is_active              TINYINT(1)   NOT NULL DEFAULT 1,
		failed_login_attempts  INT          NOT NULL DEFAULT 0,
		locked_until           DATETIME     NULL,
		password_reset_token   CHAR(64)     NULL,
		password_reset_expires DATETIME     NULL,
		last_login             DATETIME     NULL,
		created_at             DATETIME     NOT NULL,
		PRIMARY KEY (user_id),
		UNIQUE KEY uq_user_auth_username (username),
		UNIQUE KEY uq_user_auth_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_sessions (
		session_id    CHAR(64)     NOT NULL,
		user_id       VARCHAR(36)  NOT NULL,
		created_at    DATETIME     NOT NULL,
		last_activity DATETIME     NOT NULL,
		expires_at    DATETIME     NOT NULL,
		ip_address    VARCHAR(64)  NOT NULL DEFAULT '',
		user_agent    VARCHAR(255) NOT NULL DEFAULT '',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		PRIMARY KEY (session_id),
		KEY idx_user_sessions_user_active (user_id, is_active),
		KEY idx_user_sessions_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS security_audit_log (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    VARCHAR(36)  NULL,
		action     VARCHAR(32)  NOT NULL,
		success    TINYINT(1)   NOT NULL DEFAULT 0,
		details    TEXT         NOT NULL,
		ip_address VARCHAR(64)  NOT NULL DEFAULT '',
		user_agent VARCHAR(255) NOT NULL DEFAULT '',
		timestamp  DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_audit_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the authentication tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
