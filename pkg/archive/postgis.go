package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/planner"
)

// PostGISStore keeps planners in Postgres. Place items carry their position
// as a GEOMETRY(POINT, 4326) so archived planners can be queried spatially.
type PostGISStore struct {
	db *sql.DB
}

// ConnString builds a lib/pq connection string
func ConnString(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// NewPostGISStore connects and makes sure the schema exists
func NewPostGISStore(ctx context.Context, connStr string) (*PostGISStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostGISStore{db: db}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the tables and the spatial index if they are missing
func (s *PostGISStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`CREATE TABLE IF NOT EXISTS planners (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS planner_items (
			planner_id UUID NOT NULL REFERENCES planners(id) ON DELETE CASCADE,
			position INT NOT NULL,
			item_id UUID NOT NULL,
			name TEXT NOT NULL,
			content_id TEXT,
			rating DOUBLE PRECISION,
			type TEXT,
			location GEOMETRY(POINT, 4326),
			PRIMARY KEY (planner_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_planner_items_location ON planner_items USING GIST(location);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

func (s *PostGISStore) Save(ctx context.Context, p Planner) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO planners (id, created_at) VALUES ($1, $2)`,
		p.ID, p.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert planner %s: %w", p.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO planner_items (planner_id, position, item_id, name, content_id, rating, type, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_MakePoint($8, $9), 4326))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, item := range p.Items {
		var (
			contentID, kind sql.NullString
			rating          sql.NullFloat64
			lon, lat        sql.NullFloat64
		)
		if item.Place != nil {
			contentID = sql.NullString{String: item.Place.ContentID, Valid: true}
			kind = sql.NullString{String: item.Place.Type, Valid: true}
			rating = sql.NullFloat64{Float64: float64(item.Place.Rating), Valid: true}
			loc := item.Place.Location()
			lon = sql.NullFloat64{Float64: loc.Lon, Valid: true}
			lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, p.ID, i, item.ID, item.Name, contentID, rating, kind, lon, lat); err != nil {
			return fmt.Errorf("failed to insert item %d of planner %s: %w", i, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit planner %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostGISStore) List(ctx context.Context) ([]Planner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.created_at, i.item_id, i.name, i.content_id, i.rating, i.type,
			ST_Y(i.location) AS lat, ST_X(i.location) AS lon
		FROM planners p
		LEFT JOIN planner_items i ON i.planner_id = p.id
		ORDER BY p.created_at DESC, p.id, i.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var planners []Planner
	for rows.Next() {
		var (
			id        uuid.UUID
			createdAt time.Time
			itemID    uuid.NullUUID
			name      sql.NullString
			contentID sql.NullString
			rating    sql.NullFloat64
			kind      sql.NullString
			lat, lon  sql.NullFloat64
		)
		if err := rows.Scan(&id, &createdAt, &itemID, &name, &contentID, &rating, &kind, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if len(planners) == 0 || planners[len(planners)-1].ID != id {
			planners = append(planners, Planner{ID: id, CreatedAt: createdAt})
		}
		if !itemID.Valid {
			continue
		}

		item := planner.Item{ID: itemID.UUID, Name: name.String}
		if contentID.Valid || lat.Valid {
			item.Place = &models.PlaceRecord{
				ContentID: contentID.String,
				Name:      name.String,
				Rating:    models.Float(rating.Float64),
				Type:      kind.String,
				PositionX: models.Float(lon.Float64),
				PositionY: models.Float(lat.Float64),
			}
		}
		current := &planners[len(planners)-1]
		current.Items = append(current.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return planners, nil
}

// ItemsInBox returns archived place items whose position lies inside box
func (s *PostGISStore) ItemsInBox(ctx context.Context, box models.BoundingBox) ([]planner.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, name, content_id, ST_Y(location) AS lat, ST_X(location) AS lon
		FROM planner_items
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`, box.BottomLeft.Lon, box.BottomLeft.Lat, box.TopRight.Lon, box.TopRight.Lat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var items []planner.Item
	for rows.Next() {
		var (
			id        uuid.UUID
			name      string
			contentID sql.NullString
			lat, lon  float64
		)
		if err := rows.Scan(&id, &name, &contentID, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, planner.Item{
			ID:   id,
			Name: name,
			Place: &models.PlaceRecord{
				ContentID: contentID.String,
				Name:      name,
				PositionX: models.Float(lon),
				PositionY: models.Float(lat),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (s *PostGISStore) Close() error {
	return s.db.Close()
}
