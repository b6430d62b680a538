package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Profile is a named set of threshold overrides for one exercise. Thresholds
// holds a JSON object whose keys match the exercise's configuration fields;
// keys that are absent keep their configured value.
type Profile struct {
	ID         string
	Name       string
	Exercise   string
	Thresholds json.RawMessage
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProfileRepository provides CRUD operations for tuning profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, exercise, thresholds, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var thresholds string
	var active int

	if err := row.Scan(&p.ID, &p.Name, &p.Exercise, &thresholds, &active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Thresholds = json.RawMessage(thresholds)
	p.Active = active != 0
	return p, nil
}

func thresholdsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// Create inserts a new profile. An active profile deactivates the other
// profiles of the same exercise.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.Active {
		if _, err := tx.Exec(`UPDATE profiles SET active = 0 WHERE exercise = ?`, p.Exercise); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Exercise, thresholdsText(p.Thresholds), p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetActive returns the active profile for an exercise.
// Returns nil, nil if none is active.
func (r *ProfileRepository) GetActive(exercise string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE exercise = ? AND active = 1`, exercise,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all profiles, newest first.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update updates an existing profile. Activation is handled by Activate and
// Deactivate; the Active field is ignored here.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, exercise = ?, thresholds = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Exercise, thresholdsText(p.Thresholds), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	return affectedOne(result)
}

// Activate makes the profile the active one for its exercise.
func (r *ProfileRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exercise string
	if err := tx.QueryRow(`SELECT exercise FROM profiles WHERE id = ?`, id).Scan(&exercise); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(`UPDATE profiles SET active = (id = ?) WHERE exercise = ?`, id, exercise); err != nil {
		return err
	}

	return tx.Commit()
}

// Deactivate clears the active flag of a profile.
func (r *ProfileRepository) Deactivate(id string) error {
	result, err := r.db.Exec(`UPDATE profiles SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a profile from the database by its ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
