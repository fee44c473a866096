package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	position_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	source TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol_close ON trades(symbol, close_time);

CREATE TABLE IF NOT EXISTS decisions (
	decision_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	at DATETIME NOT NULL,
	admitted INTEGER NOT NULL,
	reason TEXT NOT NULL,
	regime TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence REAL NOT NULL,
	position_id TEXT NOT NULL,
	diagnostics TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_symbol_at ON decisions(symbol, at);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL,
	symbols TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	decisions INTEGER NOT NULL,
	admitted INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	net_pl REAL NOT NULL,
	config TEXT NOT NULL
);
`
