package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
)

// jobProgressKeyPrefix namespaces job-progress checkpoints within the
// shared key_value_store table so they don't collide with other callers
// of that table (out of scope here, but the table is shared).
const jobProgressKeyPrefix = "job-progress-"

// GetJobProgress returns the last checkpointed slot for jobName, or nil if
// the job has never run (or never checkpointed) before.
func GetJobProgress(ctx context.Context, e Executor, jobName string) (*slots.Slot, error) {
	row := e.QueryRow(ctx, `
		SELECT value FROM key_value_store WHERE key = $1
	`, jobProgressKeyPrefix+jobName)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_job_progress: %w", err)
	}

	var payload struct {
		Slot slots.Slot `json:"slot"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("get_job_progress decode: %w", err)
	}
	return &payload.Slot, nil
}

// SetJobProgress upserts the checkpoint for jobName.
func SetJobProgress(ctx context.Context, e Executor, jobName string, slot slots.Slot) error {
	payload, err := json.Marshal(struct {
		Slot slots.Slot `json:"slot"`
	}{Slot: slot})
	if err != nil {
		return fmt.Errorf("set_job_progress encode: %w", err)
	}

	_, err = e.Exec(ctx, `
		INSERT INTO key_value_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, jobProgressKeyPrefix+jobName, payload)
	if err != nil {
		return fmt.Errorf("set_job_progress: %w", err)
	}
	return nil
}
