package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// DefaultStatsIntervalMs is the daemon polling period when -i is absent.
const DefaultStatsIntervalMs = 1000

// bareHelp is the value --help takes when given without a topic.
const bareHelp = "true"

// Options is the normalized command line.
type Options struct {
	Version bool

	// HelpSet is true when --help was given. HelpTopic is empty for bare
	// --help, which shows the general usage text.
	HelpSet   bool
	HelpTopic string

	ConfigPath      string
	Verbose         bool
	Daemon          bool
	QList           bool
	QStat           bool
	QEmpty          bool
	StatsIntervalMs int64
}

// StatsInterval converts StatsIntervalMs to a ticker period. Values below
// one millisecond are clamped to one millisecond.
func (o Options) StatsInterval() time.Duration {
	if o.StatsIntervalMs < 1 {
		return time.Millisecond
	}
	return time.Duration(o.StatsIntervalMs) * time.Millisecond
}

func newFlagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("qstat", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SortFlags = false

	fs.BoolVarP(&opts.Version, "version", "v", false, "Outputs version number")
	fs.StringVarP(&opts.HelpTopic, "help", "h", "", "Outputs this help message, or help for NAME")
	fs.Lookup("help").NoOptDefVal = bareHelp
	fs.StringVarP(&opts.ConfigPath, "configs", "c", "", "Path to your config directory")
	fs.BoolVarP(&opts.Daemon, "daemon", "d", false, "Run statistics as a daemon to report outbound queue size")
	fs.BoolVar(&opts.QList, "qlist", false, "List the outbound queue")
	fs.BoolVar(&opts.QStat, "qstat", false, "Get statistics on the outbound queue")
	fs.BoolVar(&opts.QEmpty, "qempty", false, "Shows whether outbound queue is empty")
	opts.StatsIntervalMs = DefaultStatsIntervalMs
	fs.VarP((*lenientMillis)(&opts.StatsIntervalMs), "stats-interval", "i", "Report stats every N milliseconds")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Show the queue engine's own log output")

	return fs
}

// lenientMillis is an integer flag that ignores values it cannot parse,
// leaving the previous value in place.
type lenientMillis int64

func (m *lenientMillis) String() string { return strconv.FormatInt(int64(*m), 10) }
func (m *lenientMillis) Type() string   { return "int" }

func (m *lenientMillis) Set(s string) error {
	if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		*m = lenientMillis(v)
	}
	return nil
}

// ParseOptions turns raw arguments into Options. Unknown flags, positional
// arguments and unparsable --stats-interval values are ignored. The only
// errors are known flags missing their value, reported as ErrUsage.
func ParseOptions(args []string) (Options, error) {
	var opts Options
	fs := newFlagSet(&opts)

	if err := fs.Parse(joinHelpTopic(args)); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if fs.Changed("help") {
		opts.HelpSet = true
		if opts.HelpTopic == bareHelp {
			opts.HelpTopic = ""
		}
	}

	return opts, nil
}

// joinHelpTopic rewrites "--help NAME" and "-h NAME" as "--help=NAME" so the
// topic is taken as the flag value while bare --help keeps working.
func joinHelpTopic(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if (arg == "--help" || arg == "-h") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, "--help="+args[i+1])
			i++
			continue
		}
		out = append(out, arg)
	}
	return out
}
