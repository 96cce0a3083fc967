package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"medassist/apps/backend/internal/consult"
)

var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS "ConsultationTurn" (
	   "id" UUID PRIMARY KEY,
	   "sessionId" TEXT NOT NULL,
	   "pipeline" TEXT NOT NULL,
	   "input" TEXT NOT NULL,
	   "output" JSONB NOT NULL,
	   "closed" BOOLEAN NOT NULL DEFAULT FALSE,
	   "fallback" BOOLEAN NOT NULL DEFAULT FALSE,
	   "model" TEXT,
	   "promptTokens" INTEGER NOT NULL DEFAULT 0,
	   "completionTokens" INTEGER NOT NULL DEFAULT 0,
	   "totalTokens" INTEGER NOT NULL DEFAULT 0,
	   "createdAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	 )`,
	`CREATE INDEX IF NOT EXISTS "ConsultationTurn_sessionId_createdAt_idx"
	   ON "ConsultationTurn" ("sessionId", "createdAt")`,
}

var requiredColumns = []string{
	"id", "sessionId", "pipeline", "input", "output", "closed",
	"fallback", "model", "totalTokens", "createdAt",
}

// Archive stores every completed consultation turn in Postgres.
type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// EnsureSchema creates the archive table when missing and verifies the
// columns the archive writes.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if a.pool == nil {
		return errors.New("database pool is nil")
	}
	for _, statement := range archiveSchema {
		if _, err := a.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("create archive schema: %w", err)
		}
	}
	for _, column := range requiredColumns {
		ok, err := a.columnExists(ctx, "ConsultationTurn", column)
		if err != nil {
			return fmt.Errorf("failed checking schema for ConsultationTurn.%s: %w", column, err)
		}
		if !ok {
			return fmt.Errorf("required column ConsultationTurn.%s is missing", column)
		}
	}
	return nil
}

func (a *Archive) RecordTurn(ctx context.Context, turn consult.ArchivedTurn) error {
	output := strings.TrimSpace(turn.Output)
	if output == "" {
		output = "null"
	}
	_, err := a.pool.Exec(
		ctx,
		`INSERT INTO "ConsultationTurn" (
		   "id", "sessionId", "pipeline", "input", "output", "closed", "fallback",
		   "model", "promptTokens", "completionTokens", "totalTokens", "createdAt"
		 ) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)`,
		uuid.NewString(),
		turn.SessionID,
		turn.Pipeline,
		turn.Input,
		output,
		turn.Closed,
		turn.Fallback,
		turn.Model,
		turn.Usage.PromptTokens,
		turn.Usage.CompletionTokens,
		turn.Usage.TotalTokens,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consultation turn: %w", err)
	}
	return nil
}

// SessionTurns lists the archived turns of one session, oldest first.
func (a *Archive) SessionTurns(ctx context.Context, sessionID string, limit int) ([]consult.ArchivedTurn, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.pool.Query(
		ctx,
		`SELECT "sessionId", "pipeline", "input", "output"::text, "closed", "fallback",
		        COALESCE("model", ''), "promptTokens", "completionTokens", "totalTokens", "createdAt"
		 FROM "ConsultationTurn"
		 WHERE "sessionId" = $1
		 ORDER BY "createdAt" ASC
		 LIMIT $2`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query consultation turns: %w", err)
	}
	defer rows.Close()

	turns := make([]consult.ArchivedTurn, 0)
	for rows.Next() {
		var turn consult.ArchivedTurn
		if err := rows.Scan(
			&turn.SessionID,
			&turn.Pipeline,
			&turn.Input,
			&turn.Output,
			&turn.Closed,
			&turn.Fallback,
			&turn.Model,
			&turn.Usage.PromptTokens,
			&turn.Usage.CompletionTokens,
			&turn.Usage.TotalTokens,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan consultation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (a *Archive) columnExists(ctx context.Context, tableName, columnName string) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		tableName,
		columnName,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
