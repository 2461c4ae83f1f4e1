package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"nesppu/emu/log"
)

type mode byte

const (
	romInfosMode   mode = iota // Show ROM infos
	chrMode                    // Dump CHR ROM
	renderMode                 // Render frames into PNG
	stateInfosMode             // Show save state infos
	versionMode                // Show nesppu version
)

type (
	CLI struct {
		RomInfos   RomInfos   `cmd:"" help:"Show ROM infos." name:"rom-infos"`
		CHR        CHR        `cmd:"" help:"Dump CHR ROM pattern tables into a PNG file." name:"chr"`
		Render     Render     `cmd:"" help:"Render frames driven by a scene file."`
		StateInfos StateInfos `cmd:"" help:"Show save state infos." name:"state-infos"`
		Version    Version    `cmd:"" help:"Show nesppu version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	RomInfos struct {
		RomPaths []string `arg:"" name:"/path/to/rom"`
	}

	CHR struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
		Out     string `name:"out" short:"o" help:"Output PNG file." default:"chr.png" type:"path"`
		Palette int    `name:"palette" short:"p" help:"${palette_help}" default:"0"`
	}

	Render struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`

		Scene     string `name:"scene" help:"Scene file driving the PPU registers." type:"existingfile"`
		Frames    int    `name:"frames" help:"${frames_help}" default:"0"`
		Out       string `name:"out" short:"o" help:"Output PNG file, for the last frame." default:"frame.png" type:"path"`
		DumpDir   string `name:"dump-dir" help:"Write every frame as a PNG file in this directory." type:"path"`
		State     int    `name:"state" help:"Load the state in this slot before running." default:"-1"`
		SaveState int    `name:"save-state" help:"Save the state in this slot after running." default:"-1"`
	}

	StateInfos struct {
		StatePath string `arg:"" name:"/path/to/state" type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":     "Enable logging for specified modules.",
	"palette_help": "Palette used to color the tiles (0-7).",
	"frames_help":  "Number of frames to run (0: as many as the scene needs).",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("nesppu"),
		kong.Description("NES picture processing unit and cartridge mappers."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch strings.Fields(ctx.Command())[0] {
	case "rom-infos":
		cfg.mode = romInfosMode
	case "chr":
		cfg.mode = chrMode
	case "render":
		cfg.mode = renderMode
	case "state-infos":
		cfg.mode = stateInfosMode
	case "version":
		cfg.mode = versionMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "render") {
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
