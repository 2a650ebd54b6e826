package history

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id             TEXT PRIMARY KEY,
    document_name      TEXT NOT NULL,
    content_type       TEXT,
    source_uri         TEXT,
    size_bytes         INTEGER NOT NULL DEFAULT 0,
    parser_version     TEXT NOT NULL,
    status             TEXT NOT NULL,
    started_at         TEXT NOT NULL,
    finished_at        TEXT,
    error_message      TEXT,
    transaction_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS model_outputs (
    run_id             TEXT PRIMARY KEY REFERENCES runs(run_id) ON DELETE CASCADE,
    model              TEXT,
    finish_reason      TEXT,
    repaired           INTEGER NOT NULL DEFAULT 0,
    prompt_tokens      INTEGER,
    completion_tokens  INTEGER,
    raw_content        TEXT NOT NULL,
    created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    run_id             TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    position           INTEGER NOT NULL,
    date               TEXT,
    description        TEXT NOT NULL,
    amount             TEXT,
    type               TEXT NOT NULL,
    category           TEXT NOT NULL,
    year_month         TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
