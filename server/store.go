package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Storage is the persistence port. Collections are read whole, in stored
// order, and replaced whole; the engine never asks for row-level updates.
type Storage interface {
	Statuses(ctx context.Context) ([]Status, error)
	SaveStatuses(ctx context.Context, statuses []Status) error

	Projects(ctx context.Context) ([]Project, error)
	SaveProjects(ctx context.Context, projects []Project) error

	Characters(ctx context.Context) ([]Character, error)
	SaveCharacters(ctx context.Context, characters []Character) error

	Developers(ctx context.Context) ([]Developer, error)
	SaveDevelopers(ctx context.Context, developers []Developer) error

	Users(ctx context.Context) ([]User, error)
	SaveUsers(ctx context.Context, users []User) error

	Checklists(ctx context.Context) ([]Checklist, error)
	SaveChecklists(ctx context.Context, checklists []Checklist) error
}

// Store implements Storage on Postgres. Every save replaces the whole
// collection inside one transaction; a per-collection mutex keeps two
// writers (request handler vs. scheduler) from interleaving replacements.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	stMu  sync.Mutex // statuses
	prMu  sync.Mutex // projects
	chMu  sync.Mutex // characters
	devMu sync.Mutex // developers
	usMu  sync.Mutex // users
	clMu  sync.Mutex // checklists
}

func NewStore(db *sql.DB, log *slog.Logger) *Store { return &Store{db: db, log: log} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Seed installs the default pipeline when no statuses exist, and backfills
// categories on statuses that predate the category column.
func (s *Store) Seed(ctx context.Context) error {
	statuses, err := s.Statuses(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		return s.SaveStatuses(ctx, defaultStatuses())
	}
	changed := false
	for i, st := range statuses {
		if st.Category == "" {
			statuses[i].Category = classifyName(st.Name)
			changed = true
		}
	}
	if changed {
		return s.SaveStatuses(ctx, statuses)
	}
	return nil
}

func defaultStatuses() []Status {
	return []Status{
		{ID: 1, Name: "Name approval", Responsible: RoleProducer, Category: CategoryActive},
		{ID: 2, Name: "Ready for design", Responsible: RoleDesigner, Category: CategoryActive},
		{ID: 3, Name: "In design", Responsible: RoleNobody, Category: CategoryActive},
		{ID: 4, Name: "Ready for development", Responsible: RoleNobody, Category: CategoryActive},
		{ID: 5, Name: "Preparing white release", Responsible: RoleProducer, Category: CategoryActive},
		{ID: 6, Name: "Preparing white release", Responsible: RoleDesigner, Category: CategoryActive},
		{ID: 7, Name: "Ready for white release", Responsible: RoleProducer, Category: CategoryActive},
		{ID: 8, Name: "White review", Responsible: RoleNobody, Category: CategoryActive},
		{ID: 9, Name: "Preparing gray release", Responsible: RoleProducer, Category: CategoryActive},
		{ID: 10, Name: "Preparing gray release", Responsible: RoleDesigner, Category: CategoryActive},
		{ID: 11, Name: "Ready for gray release", Responsible: RoleDesigner, Category: CategoryActive},
		{ID: 12, Name: "Gray review", Responsible: RoleNobody, Category: CategoryActive},
		{ID: 13, Name: "Alive", Responsible: RoleNobody, Category: CategoryPublished},
		{ID: 14, Name: "Banned", Responsible: RoleNobody, Category: CategoryBanned},
	}
}

func (s *Store) Statuses(ctx context.Context) ([]Status, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, responsible, category from statuses order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		var st Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Responsible, &st.Category); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) SaveStatuses(ctx context.Context, statuses []Status) error {
	s.stMu.Lock()
	defer s.stMu.Unlock()
	return s.replace(ctx, "statuses", func(tx *sql.Tx) error {
		for _, st := range statuses {
			if _, err := tx.ExecContext(ctx,
				`insert into statuses(id, name, responsible, category) values($1,$2,$3,$4)`,
				st.ID, st.Name, st.Responsible, st.Category); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, character_id, developer_id, status_id from projects order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CharacterID, &p.DeveloperID, &p.StatusID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveProjects(ctx context.Context, projects []Project) error {
	s.prMu.Lock()
	defer s.prMu.Unlock()
	return s.replace(ctx, "projects", func(tx *sql.Tx) error {
		for _, p := range projects {
			if _, err := tx.ExecContext(ctx,
				`insert into projects(id, name, character_id, developer_id, status_id) values($1,$2,$3,$4,$5)`,
				p.ID, p.Name, p.CharacterID, p.DeveloperID, p.StatusID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Characters(ctx context.Context) ([]Character, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name from characters order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Character
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveCharacters(ctx context.Context, characters []Character) error {
	s.chMu.Lock()
	defer s.chMu.Unlock()
	return s.replace(ctx, "characters", func(tx *sql.Tx) error {
		for _, c := range characters {
			if _, err := tx.ExecContext(ctx,
				`insert into characters(id, name) values($1,$2)`, c.ID, c.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Developers(ctx context.Context) ([]Developer, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, username, total_projects, released_projects, banned_projects from developers order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Developer
	for rows.Next() {
		var d Developer
		if err := rows.Scan(&d.ID, &d.Name, &d.Username, &d.TotalProjects, &d.ReleasedProjects, &d.BannedProjects); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveDevelopers(ctx context.Context, developers []Developer) error {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	return s.replace(ctx, "developers", func(tx *sql.Tx) error {
		for _, d := range developers {
			if _, err := tx.ExecContext(ctx,
				`insert into developers(id, name, username, total_projects, released_projects, banned_projects)
				 values($1,$2,$3,$4,$5,$6)`,
				d.ID, d.Name, d.Username, d.TotalProjects, d.ReleasedProjects, d.BannedProjects); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select user_id, coalesce(username,''), coalesce(first_name,''), role, notifications_enabled, notification_interval
		 from users order by user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Username, &u.FirstName, &u.Role, &u.NotificationsEnabled, &u.NotificationInterval); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SaveUsers(ctx context.Context, users []User) error {
	s.usMu.Lock()
	defer s.usMu.Unlock()
	return s.replace(ctx, "users", func(tx *sql.Tx) error {
		for _, u := range users {
			if _, err := tx.ExecContext(ctx,
				`insert into users(user_id, username, first_name, role, notifications_enabled, notification_interval)
				 values($1,$2,$3,$4,$5,$6)`,
				u.UserID, u.Username, u.FirstName, u.Role, u.NotificationsEnabled, u.NotificationInterval); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Checklists(ctx context.Context) ([]Checklist, error) {
	rows, err := s.db.QueryContext(ctx, `select status_id, items from checklists order by status_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Checklist
	for rows.Next() {
		var cl Checklist
		var raw []byte
		if err := rows.Scan(&cl.StatusID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &cl.Items); err != nil {
			// Malformed items degrade to an empty checklist instead of
			// failing the whole load.
			s.log.Warn("checklist items corrupt, treating as empty", "status_id", cl.StatusID, "err", err)
			cl.Items = nil
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

func (s *Store) SaveChecklists(ctx context.Context, checklists []Checklist) error {
	s.clMu.Lock()
	defer s.clMu.Unlock()
	return s.replace(ctx, "checklists", func(tx *sql.Tx) error {
		for _, cl := range checklists {
			items := cl.Items
			if items == nil {
				items = []ChecklistItem{}
			}
			raw, err := json.Marshal(items)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`insert into checklists(status_id, items) values($1,$2)`, cl.StatusID, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace runs delete-all plus the supplied inserts as one transaction.
func (s *Store) replace(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `delete from `+table); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const schema = `
create table if not exists statuses(
    id bigint primary key,
    name text not null check (length(name) > 0),
    responsible text not null,
    category text not null default 'active'
);
alter table statuses add column if not exists category text not null default 'active';

-- No foreign keys on purpose: deleting a status must not cascade into
-- projects; dangling references are handled by readers.
create table if not exists projects(
    id bigint primary key,
    name text not null check (length(name) > 0),
    character_id bigint not null,
    developer_id bigint not null,
    status_id bigint not null
);

create table if not exists characters(
    id bigint primary key,
    name text not null check (length(name) > 0)
);

create table if not exists developers(
    id bigint primary key,
    name text not null,
    username text not null,
    total_projects int not null default 0,
    released_projects int not null default 0,
    banned_projects int not null default 0
);

create table if not exists users(
    user_id bigint primary key,
    username text,
    first_name text,
    role text not null default 'user',
    notifications_enabled boolean not null default true,
    notification_interval int not null default 30
);

create table if not exists checklists(
    status_id bigint primary key,
    items jsonb not null default '[]'
);
`
