package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/yookoala/realpath"

	flsql "github.com/stronnag/nrf2jpeg/pkg/flsql"
	imgmqtt "github.com/stronnag/nrf2jpeg/pkg/imgmqtt"
	jpegout "github.com/stronnag/nrf2jpeg/pkg/jpegout"
	nrflog "github.com/stronnag/nrf2jpeg/pkg/nrflog"
	options "github.com/stronnag/nrf2jpeg/pkg/options"
	sqlreader "github.com/stronnag/nrf2jpeg/pkg/readsql"
	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

var GitCommit = "local"
var GitTag = "0.0.0"

func GetVersion() string {
	return fmt.Sprintf("%s %s commit:%s", filepath.Base(os.Args[0]), GitTag, GitCommit)
}

type sinks struct {
	db     *flsql.DBL
	mq     *imgmqtt.MQTTClient
	tabbed bool
	stdout io.Writer
	stderr io.Writer
}

func main() {
	flag.Set("logtostderr", "true")
	files := options.ParseCLI(GetVersion)
	status := run(files)
	glog.Flush()
	os.Exit(status)
}

func run(files []string) int {
	if options.Config.Dump {
		return dump_sql(options.Config.Sql)
	}

	if len(files) == 0 {
		options.Usage()
		return 1
	}

	s := sinks{stdout: os.Stdout, stderr: os.Stderr}
	s.tabbed = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	if options.Config.Sql != "" && !options.Config.Metas {
		db, err := flsql.NewSQLliteDB(options.Config.Sql)
		if err != nil {
			fmt.Fprintf(os.Stderr, "*** %v\n", err)
			return 1
		}
		s.db = &db
		defer db.Close()
	}

	if options.Config.Broker != "" && !options.Config.Metas {
		mq, err := imgmqtt.NewMQTTClient(options.Config.Broker)
		if err != nil {
			fmt.Fprintf(os.Stderr, "*** %v\n", err)
			return 1
		}
		s.mq = mq
		defer mq.Close()
	}

	status := 0
	for _, fn := range files {
		if !s.process(fn, options.OutputFor(fn, len(files))) {
			status = 1
		}
	}
	return status
}

// process handles one log. It returns false only when the log could not be
// read at all.
func (s *sinks) process(fn string, outbase string) bool {
	ftype, err := types.EvinceFileType(fn)
	if err == nil && !types.IsTextType(ftype) {
		err = types.ErrNotText
	}
	if err != nil {
		s.report_fatal(fn, err)
		return false
	}

	l := nrflog.NewNRFReader(fn, options.Config.FoldCase)
	metas, err := l.GetMetas()
	if err != nil {
		if types.IsNoData(err) {
			fmt.Fprintln(s.stderr, "Error: No hexadecimal data found in the log file.")
			return true
		}
		s.report_fatal(fn, err)
		return false
	}

	if options.Config.Metas {
		for _, m := range metas {
			fmt.Fprintln(s.stdout, m.CSV())
		}
		return true
	}

	imgs, err := l.Images(options.Config.Idx)
	if err != nil {
		fmt.Fprintf(s.stderr, "*** %v\n", err)
		return true
	}

	if ftype != types.IS_NRF {
		glog.V(1).Infof("%s: no nRF Connect header, scanning as plain text\n", fn)
	}

	sum := types.LogSummary{Logname: filepath.Base(fn), Format: types.FileTypeName(ftype), Date: time.Now(), Images: len(metas)}
	for _, m := range metas {
		sum.Bytes += m.Size()
	}
	if !s.tabbed {
		fmt.Fprint(s.stdout, sum.Summary())
	}

	if options.Config.Outdir != "" {
		if err := os.MkdirAll(options.Config.Outdir, 0755); err != nil {
			fmt.Fprintf(s.stderr, "*** outdir: %v\n", err)
			return false
		}
	}

	results := jpegout.WriteImages(imgs, outbase)
	for _, r := range results {
		s.show_result(r)
	}

	if s.mq != nil {
		for _, perr := range imgmqtt.PublishImages(s.mq, s.mq.Topic(), results) {
			fmt.Fprintf(s.stderr, "*** %v\n", perr)
		}
	}

	if s.db != nil {
		if _, err := s.db.Record(sum.Logname, sum.Date, results); err != nil {
			fmt.Fprintf(s.stderr, "*** sql: %v\n", err)
		}
	}
	if !s.tabbed {
		fmt.Fprintln(s.stdout)
	}
	return true
}

func (s *sinks) report_fatal(fn string, err error) {
	switch {
	case types.IsNotFound(err):
		fmt.Fprintf(s.stderr, "Error: Log file '%s' not found.\n", fn)
	case errors.Cause(err) == types.ErrNotText:
		fmt.Fprintf(s.stderr, "Error: '%s' is not a text log.\n", fn)
	default:
		fmt.Fprintf(s.stderr, "Error: An unexpected error occurred - %v\n", err)
	}
}

func (s *sinks) show_result(r types.ImageResult) {
	if s.tabbed {
		fmt.Fprintf(s.stdout, "%d\t%s\t%d\t%s\n", r.Index, r.Status(), r.Size, r.Filename)
		if !r.OK() {
			fmt.Fprintf(s.stderr, "Error: %v\n", r.Err)
		} else if options.Config.Check && r.NoEOI {
			fmt.Fprintf(s.stderr, "Warning: image %d lacks EOI marker\n", r.Index)
		}
		return
	}
	if !r.OK() {
		fmt.Fprintf(s.stderr, "Error: %v\n", r.Err)
		return
	}
	fmt.Fprintf(s.stdout, "%-8.8s : %d\n", "Image", r.Index)
	show_output(s.stdout, r.Filename)
	fmt.Fprintf(s.stdout, "%-8.8s : %s\n", "Size", r.ShowSize())
	if options.Config.Check && r.NoEOI {
		fmt.Fprintf(s.stdout, "%-8.8s : image %d lacks EOI marker\n", "Warning", r.Index)
	}
}

func show_output(w io.Writer, outfn string) {
	if outfn != "" {
		rp, err := realpath.Realpath(outfn)
		if err != nil || rp == "" {
			rp = outfn
		}
		fmt.Fprintf(w, "%-8.8s : %s\n", "Output", rp)
	}
}

func dump_sql(fn string) int {
	if fn == "" {
		fmt.Fprintln(os.Stderr, "*** -dump needs -sql database")
		return 1
	}
	r, err := sqlreader.NewSQLReader(fn)
	if err == nil {
		defer r.Close()
		err = r.Dump(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "*** %v\n", err)
		return 1
	}
	return 0
}
