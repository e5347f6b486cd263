package sqlreader

import (
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type ImageRec struct {
	Run      string `db:"run"`
	Logname  string `db:"logname"`
	Dtg      string `db:"dtg"`
	Idx      int    `db:"idx"`
	Filename string `db:"filename"`
	Size     int64  `db:"size"`
	Status   string `db:"status"`
	Errstr   string `db:"errstr"`
}

func (r *ImageRec) Date() time.Time {
	dt, err := time.Parse(time.RFC3339, r.Dtg)
	if err != nil {
		return time.Time{}
	}
	return dt
}

type SQLREAD struct {
	name string
	db   *sqlx.DB
}

const QIMAGES = `SELECT i.run, r.logname, r.dtg, i.idx, i.filename, i.size, i.status, i.errstr
 FROM images i JOIN runs r ON r.id = i.run ORDER BY r.rowid DESC, i.idx`

func NewSQLReader(fn string) (SQLREAD, error) {
	var l SQLREAD
	var err error
	l.name = fn
	l.db, err = sqlx.Open("sqlite", fn)
	if err != nil {
		return l, errors.Wrapf(err, "db %s", fn)
	}
	return l, nil
}

// Images lists stored results, newest run first.
func (o *SQLREAD) Images() ([]ImageRec, error) {
	var recs []ImageRec
	if err := o.db.Select(&recs, QIMAGES); err != nil {
		return nil, errors.Wrapf(err, "%s", o.name)
	}
	return recs, nil
}

func (o *SQLREAD) Dump(w io.Writer) error {
	recs, err := o.Images()
	if err != nil {
		return err
	}
	run := ""
	for _, r := range recs {
		if r.Run != run {
			if run != "" {
				fmt.Fprintln(w)
			}
			run = r.Run
			fmt.Fprintf(w, "%-8.8s : %s\n", "Run", r.Run)
			fmt.Fprintf(w, "%-8.8s : %s\n", "Log", r.Logname)
			fmt.Fprintf(w, "%-8.8s : %s\n", "Date", r.Date().Local().Format("2006-01-02 15:04:05"))
		}
		if r.Errstr == "" {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", r.Idx, r.Status, r.Size, r.Filename)
		} else {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", r.Idx, r.Status, r.Size, r.Filename, r.Errstr)
		}
	}
	return nil
}

func (o *SQLREAD) Close() {
	o.db.Close()
}
