package journal

// Schema creates the journal tables. Money columns are TEXT so decimals
// round-trip without float rounding.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	asset_class TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_date DATETIME NOT NULL,
	entry_price TEXT NOT NULL,
	original_quantity INTEGER NOT NULL,
	remaining_quantity INTEGER NOT NULL,
	multiplier TEXT NOT NULL,
	total_realized_pnl TEXT NOT NULL,
	closed_at DATETIME,
	reason TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '',
	stop_loss TEXT,
	target TEXT,
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exits (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	position_id TEXT NOT NULL REFERENCES positions(id),
	quantity INTEGER NOT NULL,
	price TEXT NOT NULL,
	commission TEXT NOT NULL,
	pnl TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cash_flows (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	amount TEXT NOT NULL,
	time DATETIME NOT NULL,
	note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_exits_position ON exits(position_id);
CREATE INDEX IF NOT EXISTS idx_positions_closed_at ON positions(closed_at);
`
