package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// Diagram is the persisted shape of a diagram document (spec.md §6).
type Diagram struct {
	ID            string
	Title         string
	Description   string
	BpmnXML       string
	Version       int
	OwnerID       string
	Collaborators []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DiagramStore persists Diagram rows and their collaborator lists.
type DiagramStore struct {
	db *sql.DB
}

// NewDiagramStore wraps db as a DiagramStore.
func NewDiagramStore(db *sql.DB) *DiagramStore {
	return &DiagramStore{db: db}
}

func validateDiagram(title, description string) error {
	if n := len(title); n == 0 || n > 100 {
		return errors.Wrapf(errors.ErrValidation, "title must be 1-100 characters, got %d", n)
	}
	if n := len(description); n > 500 {
		return errors.Wrapf(errors.ErrValidation, "description must be at most 500 characters, got %d", n)
	}
	return nil
}

// Create inserts a new diagram owned by ownerID, starting at version 1.
func (s *DiagramStore) Create(ctx context.Context, title, description, ownerID string) (*Diagram, error) {
	if err := validateDiagram(title, description); err != nil {
		return nil, err
	}
	now := time.Now()
	d := &Diagram{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Version:     1,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagrams (id, title, description, bpmn_xml, version, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, '', 1, ?, ?, ?)`,
		d.ID, d.Title, d.Description, d.OwnerID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create diagram")
	}
	return d, nil
}

func (s *DiagramStore) scanRow(ctx context.Context, row *sql.Row) (*Diagram, error) {
	d := &Diagram{}
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.BpmnXML, &d.Version, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan diagram")
	}
	collaborators, err := s.collaborators(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Collaborators = collaborators
	return d, nil
}

// GetByID returns the diagram with id, including its collaborator list.
func (s *DiagramStore) GetByID(ctx context.Context, id string) (*Diagram, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, bpmn_xml, version, owner_id, created_at, updated_at FROM diagrams WHERE id = ?`, id)
	return s.scanRow(ctx, row)
}

// Update overwrites bpmnXml and bumps version monotonically. expectedVersion
// must match the diagram's current version, or ErrVersionConflict is
// returned (see SPEC_FULL.md §9's version-validation decision) with the
// current version attached.
func (s *DiagramStore) Update(ctx context.Context, id, bpmnXML string, expectedVersion int) (newVersion int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT version FROM diagrams WHERE id = ?", id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.ErrNotFound
		}
		return 0, errors.Wrap(err, "read current version")
	}
	if current != expectedVersion {
		return current, ErrVersionConflict
	}

	newVersion = current + 1
	if _, err := tx.ExecContext(ctx,
		"UPDATE diagrams SET bpmn_xml = ?, version = ?, updated_at = ? WHERE id = ?",
		bpmnXML, newVersion, time.Now(), id,
	); err != nil {
		return 0, errors.Wrap(err, "update diagram")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit update")
	}
	return newVersion, nil
}

// BumpVersion validates and advances a diagram's bookkeeping version counter
// without touching bpmnXml — used for the real-time diagram_change path,
// where the version exists only to catch a stale sender (spec.md's
// Non-goals rule out OT/CRDT reconciliation; this is last-writer-wins
// bookkeeping, not a merge).
func (s *DiagramStore) BumpVersion(ctx context.Context, id string, expectedVersion int) (newVersion int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT version FROM diagrams WHERE id = ?", id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.ErrNotFound
		}
		return 0, errors.Wrap(err, "read current version")
	}
	if current != expectedVersion {
		return current, ErrVersionConflict
	}

	newVersion = current + 1
	if _, err := tx.ExecContext(ctx,
		"UPDATE diagrams SET version = ?, updated_at = ? WHERE id = ?", newVersion, time.Now(), id,
	); err != nil {
		return 0, errors.Wrap(err, "bump diagram version")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit version bump")
	}
	return newVersion, nil
}

// AddCollaborator grants userID access to diagramID.
func (s *DiagramStore) AddCollaborator(ctx context.Context, diagramID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO diagram_collaborators (diagram_id, user_id, added_at) VALUES (?, ?, ?)`,
		diagramID, userID, time.Now(),
	)
	if err != nil {
		return errors.Wrapf(err, "add collaborator %q to diagram %q", userID, diagramID)
	}
	return nil
}

// RemoveCollaborator revokes userID's access to diagramID.
func (s *DiagramStore) RemoveCollaborator(ctx context.Context, diagramID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM diagram_collaborators WHERE diagram_id = ? AND user_id = ?`, diagramID, userID)
	if err != nil {
		return errors.Wrapf(err, "remove collaborator %q from diagram %q", userID, diagramID)
	}
	return nil
}

func (s *DiagramStore) collaborators(ctx context.Context, diagramID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM diagram_collaborators WHERE diagram_id = ?", diagramID)
	if err != nil {
		return nil, errors.Wrap(err, "list collaborators")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan collaborator")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListForUser returns every diagram userID owns or collaborates on.
func (s *DiagramStore) ListForUser(ctx context.Context, userID string) ([]*Diagram, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT d.id, d.title, d.description, d.bpmn_xml, d.version, d.owner_id, d.created_at, d.updated_at
		 FROM diagrams d
		 LEFT JOIN diagram_collaborators c ON c.diagram_id = d.id
		 WHERE d.owner_id = ? OR c.user_id = ?
		 ORDER BY d.updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list diagrams for user")
	}
	defer rows.Close()

	var out []*Diagram
	for rows.Next() {
		d := &Diagram{}
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.BpmnXML, &d.Version, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan diagram")
		}
		collaborators, err := s.collaborators(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		d.Collaborators = collaborators
		out = append(out, d)
	}
	return out, rows.Err()
}

// ErrVersionConflict is returned by Update when expectedVersion doesn't
// match the diagram's current version.
var ErrVersionConflict = errors.New("diagram version conflict")
