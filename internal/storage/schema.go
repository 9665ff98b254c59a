package storage

// schemas holds the DDL per driver. The tables are the same; only key and
// id column syntax differs.
var schemas = map[string]string{
	"sqlite": `
-- 'sources' tracks where synced decks come from: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TIMESTAMP
);
` + commonSchema,
	"postgres": `
CREATE TABLE IF NOT EXISTS sources (
    id BIGSERIAL PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TIMESTAMP
);
` + commonSchema,
}

const commonSchema = `
-- 'items' caches deck entries parsed from synced sources.
CREATE TABLE IF NOT EXISTS items (
    id TEXT NOT NULL,
    kind TEXT NOT NULL,
    prompt TEXT NOT NULL,
    answer TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    grp TEXT NOT NULL DEFAULT '',
    note TEXT NOT NULL DEFAULT '',
    source_id INTEGER,
    PRIMARY KEY (kind, id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- 'incorrect_items' holds, per learner and drill kind, the items whose last answer was wrong.
CREATE TABLE IF NOT EXISTS incorrect_items (
    learner TEXT NOT NULL,
    kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    count INTEGER NOT NULL,
    last_attempt TIMESTAMP NOT NULL,
    PRIMARY KEY (learner, kind, item_id)
);

-- 'completed_items' records every item a learner has answered correctly at least once.
CREATE TABLE IF NOT EXISTS completed_items (
    learner TEXT NOT NULL,
    kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    completed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (learner, kind, item_id)
);
`
