package postgres

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
    id            BIGSERIAL PRIMARY KEY,
    name          TEXT        NOT NULL,
    address       TEXT        NOT NULL UNIQUE,
    kind          TEXT        NOT NULL,
    port          INT         NOT NULL DEFAULT 0,
    enabled       BOOLEAN     NOT NULL DEFAULT TRUE,
    display_order INT         NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS probe_results (
    id          BIGSERIAL PRIMARY KEY,
    endpoint_id BIGINT      NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
    up          BOOLEAN     NOT NULL,
    latency_ms  DOUBLE PRECISION,
    reason      TEXT        NOT NULL DEFAULT '',
    checked_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_probe_results_endpoint_checked
    ON probe_results (endpoint_id, checked_at DESC);
`
