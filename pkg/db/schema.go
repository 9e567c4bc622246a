package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA temp_store = MEMORY;

-- Source-of-truth documents, one row per URL
CREATE TABLE IF NOT EXISTS documents (
    url TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    body TEXT NOT NULL,
    fetched_at INTEGER NOT NULL  -- unix seconds
);

CREATE INDEX IF NOT EXISTS idx_documents_fetched_at ON documents(fetched_at);
`
