package postgres

// Schema is the DDL for the three tables the Closure Store owns. It is
// exposed as a string rather than executed by this package — database
// provisioning and migration tooling are out of scope (SPEC_FULL.md §1);
// an operator runs this once via their own migration tool of choice.
const Schema = `
CREATE TABLE IF NOT EXISTS files (
	id         UUID PRIMARY KEY,
	type       SMALLINT NOT NULL,
	owner_id   UUID NOT NULL,
	own_name   TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS file_ancestors_file_descendants (
	ancestor_id      UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	descendant_id    UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	descendant_path  TEXT NOT NULL,
	descendant_depth INT  NOT NULL,
	PRIMARY KEY (ancestor_id, descendant_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS file_ancestors_file_descendants_ancestor_path_idx
	ON file_ancestors_file_descendants (ancestor_id, descendant_path);

CREATE INDEX IF NOT EXISTS file_ancestors_file_descendants_descendant_depth_idx
	ON file_ancestors_file_descendants (descendant_id, descendant_depth);

CREATE TABLE IF NOT EXISTS file_shares (
	id         UUID PRIMARY KEY,
	file_id    UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	user_id    UUID NOT NULL,
	kind       SMALLINT NOT NULL,
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS file_shares_file_id_idx ON file_shares (file_id);
`
