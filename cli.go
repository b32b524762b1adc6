package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"amber/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run the machine headless
	verifyMode              // Determinism check
	versionMode             // Show amber version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run the machine headless. (default command)" default:"true"`
		Verify  Verify  `cmd:"" help:"Check frame determinism across replicas."`
		Version Version `cmd:"" help:"Show amber version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		Frames   int     `name:"frames" help:"Number of frames to run, 0 for no limit." default:"500"`
		Turbo    float64 `name:"turbo" help:"${turbo_help}" default:"0"`
		StateIn  string  `name:"state-in" help:"Restore machine state from file before running." type:"existingfile"`
		StateOut string  `name:"state-out" help:"Write final machine state to file." type:"path"`
	}

	Verify struct {
		Replicas int `name:"replicas" help:"Number of machines to run concurrently." default:"4"`
		Frames   int `name:"frames" help:"Frames to run each replica for." default:"120"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"turbo_help": "Speed factor relative to real time. 0 runs unpaced.",
	"log_help":   "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("amber"),
		kong.Description("Amiga-class chipset timing core."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "verify":
		cfg.mode = verifyMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
