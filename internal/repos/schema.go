package repos

// Decimal amounts are stored as TEXT on SQLite (exact, two digits) and NUMERIC on Postgres.
// Times are always written in UTC.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS operators(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS revoked_tokens(
  jti TEXT PRIMARY KEY,
  expires_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS merchants(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  local_to_usd_rate TEXT NOT NULL DEFAULT '2800.00',
  created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS shops(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  merchant_id INTEGER NOT NULL REFERENCES merchants(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  commerce_type TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  is_depot BOOLEAN NOT NULL DEFAULT FALSE,
  low_stock_threshold INTEGER NOT NULL DEFAULT 5,
  created_at DATETIME NOT NULL,
  UNIQUE(merchant_id, name)
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_shops_depot ON shops(merchant_id) WHERE is_depot;
CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  UNIQUE(shop_id, name)
);
CREATE TABLE IF NOT EXISTS articles(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  sale_price TEXT NOT NULL,
  sale_price_usd TEXT,
  purchase_price TEXT NOT NULL DEFAULT '0.00',
  currency TEXT NOT NULL DEFAULT 'LOCAL',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  client_validated BOOLEAN NOT NULL DEFAULT TRUE,
  qty_sent_to_client INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE(shop_id, code)
);
CREATE INDEX IF NOT EXISTS ix_articles_shop_name ON articles(shop_id, name);
CREATE TABLE IF NOT EXISTS variants(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  barcode TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_variants_article ON variants(article_id);
CREATE TABLE IF NOT EXISTS stock_movements(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  variant_id INTEGER REFERENCES variants(id) ON DELETE SET NULL,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty <> 0),
  stock_before INTEGER NOT NULL,
  stock_after INTEGER NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  CHECK (stock_after = stock_before + qty)
);
CREATE INDEX IF NOT EXISTS ix_movements_article_date ON stock_movements(article_id, created_at);
CREATE INDEX IF NOT EXISTS ix_movements_shop_date ON stock_movements(shop_id, created_at);
CREATE TABLE IF NOT EXISTS price_history(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  price_before TEXT NOT NULL,
  price_after TEXT NOT NULL,
  currency TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_price_history_article ON price_history(article_id, created_at);
CREATE TABLE IF NOT EXISTS terminals(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  serial TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  api_key TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  legacy_client BOOLEAN NOT NULL DEFAULT FALSE,
  app_version TEXT NOT NULL DEFAULT '',
  last_ip TEXT NOT NULL DEFAULT '',
  last_seen_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_terminals_shop ON terminals(shop_id, active);
CREATE TABLE IF NOT EXISTS terminal_sessions(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  terminal_id INTEGER NOT NULL REFERENCES terminals(id) ON DELETE CASCADE,
  token_hash TEXT NOT NULL UNIQUE,
  ip TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  started_at DATETIME NOT NULL,
  ended_at DATETIME,
  active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_active ON terminal_sessions(terminal_id) WHERE active;
CREATE TABLE IF NOT EXISTS invoice_counters(
  merchant_id INTEGER PRIMARY KEY REFERENCES merchants(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sales(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  merchant_id INTEGER NOT NULL REFERENCES merchants(id),
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  terminal_id INTEGER REFERENCES terminals(id) ON DELETE SET NULL,
  uid TEXT NOT NULL,
  invoice_number TEXT NOT NULL,
  sold_at DATETIME NOT NULL,
  currency TEXT NOT NULL,
  total_local TEXT NOT NULL,
  total_usd TEXT NOT NULL,
  rate TEXT NOT NULL,
  paid BOOLEAN NOT NULL DEFAULT TRUE,
  payment_mode TEXT NOT NULL,
  cancelled BOOLEAN NOT NULL DEFAULT FALSE,
  cancelled_at DATETIME,
  client_ip TEXT NOT NULL DEFAULT '',
  app_version TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  UNIQUE(shop_id, uid),
  UNIQUE(merchant_id, invoice_number)
);
CREATE INDEX IF NOT EXISTS ix_sales_shop_date ON sales(shop_id, sold_at);
CREATE TABLE IF NOT EXISTS sale_lines(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sale_id INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  article_id INTEGER NOT NULL REFERENCES articles(id),
  variant_id INTEGER REFERENCES variants(id) ON DELETE SET NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_price TEXT NOT NULL,
  unit_price_usd TEXT,
  list_price TEXT NOT NULL,
  negotiated BOOLEAN NOT NULL DEFAULT FALSE,
  line_total TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_sale_lines_sale ON sale_lines(sale_id, position);
CREATE TABLE IF NOT EXISTS rejected_sales(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  terminal_id INTEGER REFERENCES terminals(id) ON DELETE SET NULL,
  uid TEXT NOT NULL,
  payload TEXT NOT NULL,
  reason TEXT NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  article_id INTEGER,
  article_name TEXT NOT NULL DEFAULT '',
  requested INTEGER,
  available INTEGER,
  handled BOOLEAN NOT NULL DEFAULT FALSE,
  handled_at DATETIME,
  notes TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  UNIQUE(shop_id, uid)
);
CREATE TABLE IF NOT EXISTS stock_transfers(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  merchant_id INTEGER NOT NULL REFERENCES merchants(id),
  source_shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  dest_shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  reference TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  validated_at DATETIME,
  cancelled_at DATETIME,
  CHECK (source_shop_id <> dest_shop_id)
);
CREATE TABLE IF NOT EXISTS transfer_lines(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  transfer_id INTEGER NOT NULL REFERENCES stock_transfers(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  source_article_id INTEGER NOT NULL REFERENCES articles(id),
  dest_article_id INTEGER REFERENCES articles(id),
  code TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1)
);
CREATE TABLE IF NOT EXISTS notifications(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  terminal_id INTEGER NOT NULL REFERENCES terminals(id) ON DELETE CASCADE,
  shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  article_id INTEGER,
  movement_id INTEGER REFERENCES stock_movements(id) ON DELETE CASCADE,
  qty_delta INTEGER,
  stock_before INTEGER,
  stock_after INTEGER,
  is_read BOOLEAN NOT NULL DEFAULT FALSE,
  read_at DATETIME,
  payload TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_movement ON notifications(terminal_id, movement_id);
CREATE INDEX IF NOT EXISTS ix_notifications_terminal ON notifications(terminal_id, is_read, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS operators(
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS revoked_tokens(
  jti TEXT PRIMARY KEY,
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS merchants(
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  local_to_usd_rate NUMERIC(14,2) NOT NULL DEFAULT 2800.00,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS shops(
  id BIGSERIAL PRIMARY KEY,
  merchant_id BIGINT NOT NULL REFERENCES merchants(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  commerce_type TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  is_depot BOOLEAN NOT NULL DEFAULT FALSE,
  low_stock_threshold INTEGER NOT NULL DEFAULT 5,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE(merchant_id, name)
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_shops_depot ON shops(merchant_id) WHERE is_depot;
CREATE TABLE IF NOT EXISTS categories(
  id BIGSERIAL PRIMARY KEY,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE(shop_id, name)
);
CREATE TABLE IF NOT EXISTS articles(
  id BIGSERIAL PRIMARY KEY,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  sale_price NUMERIC(14,2) NOT NULL,
  sale_price_usd NUMERIC(14,2),
  purchase_price NUMERIC(14,2) NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'LOCAL',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  client_validated BOOLEAN NOT NULL DEFAULT TRUE,
  qty_sent_to_client INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE(shop_id, code)
);
CREATE INDEX IF NOT EXISTS ix_articles_shop_name ON articles(shop_id, name);
CREATE TABLE IF NOT EXISTS variants(
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  barcode TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_variants_article ON variants(article_id);
CREATE TABLE IF NOT EXISTS stock_movements(
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  variant_id BIGINT REFERENCES variants(id) ON DELETE SET NULL,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty <> 0),
  stock_before INTEGER NOT NULL,
  stock_after INTEGER NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  CHECK (stock_after = stock_before + qty)
);
CREATE INDEX IF NOT EXISTS ix_movements_article_date ON stock_movements(article_id, created_at);
CREATE INDEX IF NOT EXISTS ix_movements_shop_date ON stock_movements(shop_id, created_at);
CREATE TABLE IF NOT EXISTS price_history(
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  price_before NUMERIC(14,2) NOT NULL,
  price_after NUMERIC(14,2) NOT NULL,
  currency TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_price_history_article ON price_history(article_id, created_at);
CREATE TABLE IF NOT EXISTS terminals(
  id BIGSERIAL PRIMARY KEY,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  serial TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  api_key TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  legacy_client BOOLEAN NOT NULL DEFAULT FALSE,
  app_version TEXT NOT NULL DEFAULT '',
  last_ip TEXT NOT NULL DEFAULT '',
  last_seen_at TIMESTAMPTZ,
  last_login_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_terminals_shop ON terminals(shop_id, active);
CREATE TABLE IF NOT EXISTS terminal_sessions(
  id BIGSERIAL PRIMARY KEY,
  terminal_id BIGINT NOT NULL REFERENCES terminals(id) ON DELETE CASCADE,
  token_hash TEXT NOT NULL UNIQUE,
  ip TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMPTZ NOT NULL,
  ended_at TIMESTAMPTZ,
  active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_active ON terminal_sessions(terminal_id) WHERE active;
CREATE TABLE IF NOT EXISTS invoice_counters(
  merchant_id BIGINT PRIMARY KEY REFERENCES merchants(id) ON DELETE CASCADE,
  seq BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS sales(
  id BIGSERIAL PRIMARY KEY,
  merchant_id BIGINT NOT NULL REFERENCES merchants(id),
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  terminal_id BIGINT REFERENCES terminals(id) ON DELETE SET NULL,
  uid TEXT NOT NULL,
  invoice_number TEXT NOT NULL,
  sold_at TIMESTAMPTZ NOT NULL,
  currency TEXT NOT NULL,
  total_local NUMERIC(14,2) NOT NULL,
  total_usd NUMERIC(14,2) NOT NULL,
  rate NUMERIC(14,2) NOT NULL,
  paid BOOLEAN NOT NULL DEFAULT TRUE,
  payment_mode TEXT NOT NULL,
  cancelled BOOLEAN NOT NULL DEFAULT FALSE,
  cancelled_at TIMESTAMPTZ,
  client_ip TEXT NOT NULL DEFAULT '',
  app_version TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE(shop_id, uid),
  UNIQUE(merchant_id, invoice_number)
);
CREATE INDEX IF NOT EXISTS ix_sales_shop_date ON sales(shop_id, sold_at);
CREATE TABLE IF NOT EXISTS sale_lines(
  id BIGSERIAL PRIMARY KEY,
  sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  article_id BIGINT NOT NULL REFERENCES articles(id),
  variant_id BIGINT REFERENCES variants(id) ON DELETE SET NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_price NUMERIC(14,2) NOT NULL,
  unit_price_usd NUMERIC(14,2),
  list_price NUMERIC(14,2) NOT NULL,
  negotiated BOOLEAN NOT NULL DEFAULT FALSE,
  line_total NUMERIC(14,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_sale_lines_sale ON sale_lines(sale_id, position);
CREATE TABLE IF NOT EXISTS rejected_sales(
  id BIGSERIAL PRIMARY KEY,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  terminal_id BIGINT REFERENCES terminals(id) ON DELETE SET NULL,
  uid TEXT NOT NULL,
  payload TEXT NOT NULL,
  reason TEXT NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  article_id BIGINT,
  article_name TEXT NOT NULL DEFAULT '',
  requested INTEGER,
  available INTEGER,
  handled BOOLEAN NOT NULL DEFAULT FALSE,
  handled_at TIMESTAMPTZ,
  notes TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE(shop_id, uid)
);
CREATE TABLE IF NOT EXISTS stock_transfers(
  id BIGSERIAL PRIMARY KEY,
  merchant_id BIGINT NOT NULL REFERENCES merchants(id),
  source_shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  dest_shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  reference TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  validated_at TIMESTAMPTZ,
  cancelled_at TIMESTAMPTZ,
  CHECK (source_shop_id <> dest_shop_id)
);
CREATE TABLE IF NOT EXISTS transfer_lines(
  id BIGSERIAL PRIMARY KEY,
  transfer_id BIGINT NOT NULL REFERENCES stock_transfers(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  source_article_id BIGINT NOT NULL REFERENCES articles(id),
  dest_article_id BIGINT REFERENCES articles(id),
  code TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1)
);
CREATE TABLE IF NOT EXISTS notifications(
  id BIGSERIAL PRIMARY KEY,
  terminal_id BIGINT NOT NULL REFERENCES terminals(id) ON DELETE CASCADE,
  shop_id BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  article_id BIGINT,
  movement_id BIGINT REFERENCES stock_movements(id) ON DELETE CASCADE,
  qty_delta INTEGER,
  stock_before INTEGER,
  stock_after INTEGER,
  is_read BOOLEAN NOT NULL DEFAULT FALSE,
  read_at TIMESTAMPTZ,
  payload TEXT NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_movement ON notifications(terminal_id, movement_id);
CREATE INDEX IF NOT EXISTS ix_notifications_terminal ON notifications(terminal_id, is_read, created_at);
`
