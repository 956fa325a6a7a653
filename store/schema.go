package store

// Schema contains the DDL for the document index tables.
const Schema = `
-- Named indexes: each upload targets one.
CREATE TABLE IF NOT EXISTS indexes (
    name        TEXT PRIMARY KEY,
    created_at  INTEGER NOT NULL
);

-- Chunk records: id is "<title>-<n>", unique within an index.
-- seq is the stable rowid the FTS table points at.
CREATE TABLE IF NOT EXISTS records (
    seq         INTEGER PRIMARY KEY,
    index_name  TEXT NOT NULL REFERENCES indexes(name) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    title       TEXT NOT NULL,
    page        INTEGER NOT NULL DEFAULT -1,
    content     TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    UNIQUE (index_name, id)
);
CREATE INDEX IF NOT EXISTS idx_records_title ON records(index_name, title);

-- Full-text index over record content, kept in sync by triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
    content,
    content='records',
    content_rowid='seq'
);

CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
    INSERT INTO records_fts(rowid, content) VALUES (new.seq, new.content);
END;
CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, content) VALUES ('delete', old.seq, old.content);
END;
CREATE TRIGGER IF NOT EXISTS records_au AFTER UPDATE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, content) VALUES ('delete', old.seq, old.content);
    INSERT INTO records_fts(rowid, content) VALUES (new.seq, new.content);
END;
`
