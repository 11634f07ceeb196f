package postgres

// SQL queries for datafeed configuration storage

const (
	// querySaveDatafeed upserts a datafeed config keyed by datafeed ID.
	// The job_id unique constraint enforces one datafeed per job; a
	// violation surfaces as a pq unique_violation and maps to
	// storage.ErrDuplicate.
	querySaveDatafeed = `
		INSERT INTO datafeeds (id, job_id, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			job_id     = EXCLUDED.job_id,
			config     = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	queryGetDatafeed = `
		SELECT config
		FROM datafeeds
		WHERE id = $1
	`

	queryListDatafeeds = `
		SELECT config
		FROM datafeeds
		ORDER BY id ASC
	`

	queryDeleteDatafeed = `
		DELETE FROM datafeeds
		WHERE id = $1
	`
)
