package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// CatalogRepo provides access to the categories and services tables.  The
// catalog is read-heavy; writes are administrative.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// CreateCategory inserts a category.  Names are unique; ErrDuplicate is
// returned for an existing name.
func (r *CatalogRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO categories (id, name, icon, description, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.Icon, c.Description, c.CreatedAt); err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Annotate(err, "insert category")
	}
	return nil
}

// ListCategories returns every category, newest first.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id, name, icon, COALESCE(description, ''), created_at FROM categories ORDER BY created_at DESC, name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Annotate(err, "list categories")
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, errors.Trace(rows.Err())
}

// GetCategory fetches one category by id.
func (r *CatalogRepo) GetCategory(ctx context.Context, id string) (model.Category, error) {
	const q = `SELECT id, name, icon, COALESCE(description, ''), created_at FROM categories WHERE id = ?`
	var c model.Category
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	return c, errors.Annotate(err, "get category")
}

// CreateService inserts a service.  The category must exist; the foreign
// key rejects unknown categories and the caller checks beforehand to
// answer a proper 400.
func (r *CatalogRepo) CreateService(ctx context.Context, s *model.Service) error {
	s.CreatedAt = time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO services (id, category_id, name, description, price_cents, icon, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.CategoryID, s.Name, s.Description, s.PriceCents, s.Icon, s.CreatedAt)
	return errors.Annotate(err, "insert service")
}

// ListServices returns services, optionally restricted to one category.
func (r *CatalogRepo) ListServices(ctx context.Context, categoryID string) ([]model.Service, error) {
	q := `SELECT id, category_id, name, COALESCE(description, ''), price_cents, icon, created_at FROM services`
	args := []interface{}{}
	if categoryID != "" {
		q += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Annotate(err, "list services")
	}
	defer rows.Close()
	out := []model.Service{}
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.PriceCents, &s.Icon, &s.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, s)
	}
	return out, errors.Trace(rows.Err())
}

// GetServiceDetail returns a service joined with its category.  This is the
// read other services rely on to validate a service/category pairing.
func (r *CatalogRepo) GetServiceDetail(ctx context.Context, id string) (model.ServiceDetail, error) {
	const q = `SELECT s.id, s.category_id, s.name, COALESCE(s.description, ''), s.price_cents, s.icon, s.created_at,
	                  c.id, c.name, c.icon, COALESCE(c.description, ''), c.created_at
	           FROM services s
	           JOIN categories c ON c.id = s.category_id
	           WHERE s.id = ?`
	var d model.ServiceDetail
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.Service.ID, &d.Service.CategoryID, &d.Service.Name, &d.Service.Description, &d.Service.PriceCents, &d.Service.Icon, &d.Service.CreatedAt,
		&d.Category.ID, &d.Category.Name, &d.Category.Icon, &d.Category.Description, &d.Category.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceDetail{}, ErrNotFound
	}
	if err != nil {
		return model.ServiceDetail{}, errors.Annotate(err, "get service")
	}
	return d, nil
}
