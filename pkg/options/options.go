package options

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Configuration struct {
	Output   string
	Outdir   string
	Idx      int
	Metas    bool
	FoldCase bool
	Check    bool
	Sql      string
	Dump     bool
	Broker   string
}

var Config Configuration = Configuration{Output: "image.jpg"}

var outputSet bool

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func Usage() {
	flag.Usage()
}

func GetConfigDir() string {
	def := os.Getenv("HOME")
	if def != "" {
		def = filepath.Join(def, ".config")
	} else {
		def = "./"
	}
	return filepath.Join(def, "nrf2jpeg")
}

// LoadDefaults reads KEY=value defaults from $NRF2JPEG_ENV or the config
// directory. Variables already in the environment are left alone.
func LoadDefaults() error {
	fn := os.Getenv("NRF2JPEG_ENV")
	if fn == "" {
		fn = filepath.Join(GetConfigDir(), "nrf2jpeg.env")
	}
	if _, err := os.Stat(fn); err != nil {
		return nil
	}
	return godotenv.Load(fn)
}

func splitOpts(defs string) []string {
	var parts []string
	for _, p := range strings.Split(defs, " ") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// parseEnv applies $NRF2JPEG_OPTS and the single value variables.
func parseEnv() error {
	envflags := flag.NewFlagSet("$NRF2JPEG_OPTS", flag.ContinueOnError)
	envflags.StringVar(&Config.Output, "output", Config.Output, "output")
	envflags.StringVar(&Config.Outdir, "outdir", Config.Outdir, "outdir")
	envflags.BoolVar(&Config.FoldCase, "fold-case", Config.FoldCase, "fold-case")
	envflags.BoolVar(&Config.Check, "check", Config.Check, "check")
	if err := envflags.Parse(splitOpts(os.Getenv("NRF2JPEG_OPTS"))); err != nil {
		return err
	}
	outputSet = isFlagSet(envflags, "output")
	if s := os.Getenv("NRF2JPEG_SQL"); s != "" {
		Config.Sql = s
	}
	if s := os.Getenv("NRF2JPEG_BROKER"); s != "" {
		Config.Broker = s
	}
	return nil
}

func ParseCLI(gv func() string) []string {
	app := filepath.Base(os.Args[0])

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s [options] logfile...\n", app)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintln(os.Stderr, gv())
	}

	if err := LoadDefaults(); err != nil {
		fmt.Fprintf(os.Stderr, "*** defaults file: %v\n", err)
	}
	if err := parseEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "*** $NRF2JPEG_OPTS: %v\n", err)
	}

	flag.StringVar(&Config.Output, "output", Config.Output, "Output base name, images are written as <stem>_<n>.jpg")
	flag.StringVar(&Config.Outdir, "outdir", Config.Outdir, "Output directory for extracted images")
	flag.IntVar(&Config.Idx, "index", 0, "Extract only this image (1 based), 0 for all")
	flag.BoolVar(&Config.Metas, "metas", false, "List images found (CSV) and exit")
	flag.BoolVar(&Config.FoldCase, "fold-case", Config.FoldCase, "Also accept lower case hex")
	flag.BoolVar(&Config.Check, "check", Config.Check, "Warn on images without an end of image marker")
	flag.StringVar(&Config.Sql, "sql", Config.Sql, "Record results in this sqlite database")
	flag.BoolVar(&Config.Dump, "dump", false, "Dump the -sql results database and exit")
	flag.StringVar(&Config.Broker, "broker", Config.Broker, "Mqtt URI (mqtt://[user[:pass]@]broker[:port]/topic[?cafile=file]")

	flag.Parse()
	if isFlagSet(flag.CommandLine, "output") {
		outputSet = true
	}
	return flag.Args()
}

// OutputFor returns the base output path for logfile. With several logs
// and no explicit -output, each log names its own images; an explicit
// -output gets the log's stem appended so logs do not overwrite each other.
func OutputFor(logfile string, nlogs int) string {
	base := Config.Output
	if nlogs > 1 {
		lb := filepath.Base(logfile)
		if !outputSet {
			base = lb
		} else {
			ext := filepath.Ext(base)
			base = strings.TrimSuffix(base, ext) + "_" + strings.TrimSuffix(lb, filepath.Ext(lb)) + ext
		}
	}
	if Config.Outdir == "" {
		return base
	}
	return filepath.Join(Config.Outdir, filepath.Base(base))
}
