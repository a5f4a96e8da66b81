package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

// rulesDocumentKey is the single row the bridge uses; the schema allows more
// than one instance to share a database if they ever need to.
const rulesDocumentKey = "bridge"

// PostgresRulesRepository persists the rule document as one JSONB row and
// the operator settings as a key-value table.
type PostgresRulesRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresRulesRepository(db *sqlx.DB, schema string) *PostgresRulesRepository {
	return &PostgresRulesRepository{db: db, schema: schema}
}

// EnsureSchema creates the bridge tables if they do not exist yet.
func (r *PostgresRulesRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.bridge_rules (
				key TEXT PRIMARY KEY,
				document JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, r.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.bridge_settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, r.schema),
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure bridge schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRulesRepository) Load(ctx context.Context) (*models.BridgeRules, error) {
	query := fmt.Sprintf(`SELECT document FROM %s.bridge_rules WHERE key = $1`, r.schema)

	var raw []byte
	err := r.db.QueryRowxContext(ctx, query, rulesDocumentKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules document: %w", err)
	}

	var rules models.BridgeRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules document: %w", err)
	}
	return &rules, nil
}

func (r *PostgresRulesRepository) Save(ctx context.Context, rules *models.BridgeRules) error {
	raw, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.bridge_rules (key, document)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = NOW()
	`, r.schema)

	if _, err := r.db.ExecContext(ctx, query, rulesDocumentKey, raw); err != nil {
		return fmt.Errorf("failed to save rules document: %w", err)
	}
	return nil
}

func (r *PostgresRulesRepository) GetSetting(ctx context.Context, key string) (mo.Option[string], error) {
	query := fmt.Sprintf(`SELECT value FROM %s.bridge_settings WHERE key = $1`, r.schema)

	var value string
	err := r.db.QueryRowxContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[string](), nil
	}
	if err != nil {
		return mo.None[string](), fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	return mo.Some(value), nil
}

func (r *PostgresRulesRepository) UpsertSetting(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.bridge_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, r.schema)

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}
