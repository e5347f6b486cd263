package flsql

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

const SCHEMA = `CREATE TABLE IF NOT EXISTS runs (id text NOT NULL PRIMARY KEY, logname text, dtg text, nimages integer);
CREATE TABLE IF NOT EXISTS images (run text NOT NULL, idx integer, filename text, size integer, status text, errstr text)`

const IRUN = `insert into runs (id, logname, dtg, nimages) values ($1,$2,$3,$4)`
const IIMAGE = `insert into images (run, idx, filename, size, status, errstr) values ($1,$2,$3,$4,$5,$6)`

type DBL struct {
	db  *sql.DB
	run string
}

func NewSQLliteDB(fn string) (DBL, error) {
	var d DBL
	var err error

	d.db, err = sql.Open("sqlite", fn)
	if err != nil {
		return d, errors.Wrapf(err, "db %s", fn)
	}
	// BEGIN / COMMIT are plain statements, keep them on one connection
	d.db.SetMaxOpenConns(1)

	if _, err = d.db.Exec(SCHEMA); err != nil {
		d.db.Close()
		return d, errors.Wrap(err, "tables")
	}
	return d, nil
}

// NewRun starts a run record for logname and returns its id.
func (d *DBL) NewRun(logname string, dtg time.Time, nimages int) (string, error) {
	d.run = uuid.NewString()
	if _, err := d.db.Exec(IRUN, d.run, logname, dtg.UTC().Format(time.RFC3339), nimages); err != nil {
		return "", errors.Wrap(err, "run")
	}
	return d.run, nil
}

func (d *DBL) WriteImage(r types.ImageResult) error {
	errstr := ""
	if r.Err != nil {
		errstr = r.Err.Error()
	}
	if _, err := d.db.Exec(IIMAGE, d.run, r.Index, r.Filename, r.Size, r.Status().String(), errstr); err != nil {
		return errors.Wrap(err, "image")
	}
	return nil
}

func (d *DBL) Begin() error {
	_, err := d.db.Exec(`BEGIN TRANSACTION`)
	return errors.Wrap(err, "begin")
}

func (d *DBL) Commit() error {
	_, err := d.db.Exec(`COMMIT`)
	return errors.Wrap(err, "commit")
}

func (d *DBL) Rollback() {
	d.db.Exec(`ROLLBACK`)
}

// Record stores one log's results in a single transaction.
func (d *DBL) Record(logname string, dtg time.Time, results []types.ImageResult) (string, error) {
	if err := d.Begin(); err != nil {
		return "", err
	}
	id, err := d.NewRun(logname, dtg, len(results))
	if err == nil {
		for _, r := range results {
			if err = d.WriteImage(r); err != nil {
				break
			}
		}
	}
	if err != nil {
		d.Rollback()
		return "", err
	}
	return id, d.Commit()
}

func (d *DBL) Close() {
	d.db.Close()
}
