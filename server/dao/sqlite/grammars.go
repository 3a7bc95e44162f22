package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
)

const (
	grammarColumns = `id, owner, name, data, created, modified`

	selectGrammars = `SELECT ` + grammarColumns + ` FROM grammars`
)

type GrammarsDB struct {
	db *sql.DB
}

func (repo *GrammarsDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS grammars (
		id TEXT NOT NULL PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`)
	return wrapDBError(err)
}

func (repo *GrammarsDB) Create(ctx context.Context, g dao.Grammar) (dao.Grammar, error) {
	id, err := newID()
	if err != nil {
		return dao.Grammar{}, err
	}

	now := convertToDB_Time(time.Now())
	_, err = repo.db.ExecContext(ctx, `INSERT INTO grammars (`+grammarColumns+`) VALUES (?, ?, ?, ?, ?, ?);`,
		convertToDB_UUID(id), convertToDB_UUID(g.Owner), g.Name,
		convertToDB_ByteSlice(g.Data), now, now,
	)
	if err != nil {
		return dao.Grammar{}, wrapDBError(err)
	}
	return repo.GetByID(ctx, id)
}

func (repo *GrammarsDB) GetByID(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	return scanGrammar(repo.db.QueryRowContext(ctx, selectGrammars+` WHERE id = ?;`, convertToDB_UUID(id)))
}

func (repo *GrammarsDB) GetAllByOwner(ctx context.Context, owner uuid.UUID) ([]dao.Grammar, error) {
	return queryAll(ctx, repo.db, scanGrammar, selectGrammars+` WHERE owner = ? ORDER BY name, id;`, convertToDB_UUID(owner))
}

// Update changes the name and data of a grammar. Owner and creation time are
// never changed.
func (repo *GrammarsDB) Update(ctx context.Context, id uuid.UUID, g dao.Grammar) (dao.Grammar, error) {
	err := execOne(ctx, repo.db, `UPDATE grammars SET name=?, data=?, modified=? WHERE id=?;`,
		g.Name, convertToDB_ByteSlice(g.Data), convertToDB_Time(time.Now()), convertToDB_UUID(id),
	)
	if err != nil {
		return dao.Grammar{}, err
	}
	return repo.GetByID(ctx, id)
}

func (repo *GrammarsDB) Delete(ctx context.Context, id uuid.UUID) (dao.Grammar, error) {
	g, err := repo.GetByID(ctx, id)
	if err != nil {
		return g, err
	}
	return g, execOne(ctx, repo.db, `DELETE FROM grammars WHERE id = ?;`, convertToDB_UUID(id))
}

// Close is a no-op; the connection belongs to the store.
func (repo *GrammarsDB) Close() error {
	return nil
}

func scanGrammar(row rowScanner) (dao.Grammar, error) {
	var g dao.Grammar
	var id, owner, data string
	var created, modified int64

	err := row.Scan(&id, &owner, &g.Name, &data, &created, &modified)
	if err != nil {
		return dao.Grammar{}, wrapDBError(err)
	}

	if err := convertFromDB_UUID(id, &g.ID); err != nil {
		return g, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	if err := convertFromDB_UUID(owner, &g.Owner); err != nil {
		return g, fmt.Errorf("stored owner UUID %q is invalid: %w", owner, err)
	}
	if err := convertFromDB_ByteSlice(data, &g.Data); err != nil {
		return g, fmt.Errorf("stored grammar data is invalid: %w", err)
	}
	convertFromDB_Time(created, &g.Created)
	convertFromDB_Time(modified, &g.Modified)

	return g, nil
}
