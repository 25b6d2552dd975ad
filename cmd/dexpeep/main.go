// dexpeep runs the peephole optimizer (and optionally the redundant-cast
// remover) over a method scope and reports statistics.
//
// Usage:
//
//	dexpeep [options]
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tangzhangming/dexpeep/internal/config"
	"github.com/tangzhangming/dexpeep/internal/dexir"
	"github.com/tangzhangming/dexpeep/internal/peephole"
	"github.com/tangzhangming/dexpeep/internal/statsreport"
)

const Version = "0.1.0"

var (
	configFlag    = flag.String("config", "", "path to a "+config.FileName+"-style config file")
	debugFlag     = flag.Bool("debug", false, "enable debug-level trace logging")
	statsJSONFlag = flag.String("stats-json", "", "write the run's statistics report as JSON to this path (default: stdout)")
	versionFlag   = flag.Bool("version", false, "print the version and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dexpeep %s\n", Version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dexpeep:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: dexpeep [options]")
	flag.PrintDefaults()
}

func run() error {
	log, err := newLogger(*debugFlag)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	strings := dexir.NewStringPool()
	scope := demoScope(strings)

	engine := peephole.NewEngine(strings, log, cfg.Disabled, cfg.MaxWorkers)
	if err := engine.Run(scope); err != nil {
		return fmt.Errorf("peephole run: %w", err)
	}

	if cfg.RunRedundantCastRemover {
		remover := peephole.NewRedundantCastRemover(log)
		remover.Run(scope)
	}

	return writeStats(engine.Stats())
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(path string) (*config.PeepholeConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func writeStats(stats *peephole.Stats) error {
	report := statsreport.FromEngine(stats)

	out := os.Stdout
	if *statsJSONFlag != "" {
		f, err := os.Create(*statsJSONFlag)
		if err != nil {
			return fmt.Errorf("open stats output: %w", err)
		}
		defer f.Close()
		return statsreport.WriteJSON(f, report)
	}
	return statsreport.WriteJSON(out, report)
}

// demoScope builds a small fixture scope exercising
// Coalesce_InitVoid_AppendString end to end, standing in for the real
// IR-construction collaborator this tool would otherwise receive from a
// host toolchain (spec.md §1's "out of scope: IR construction").
func demoScope(strings *dexir.StringPool) []*dexir.Class {
	// Interning from peephole.Methods (rather than a fresh pool) is what
	// makes these instructions' method handles compare identity-equal to
	// the catalog's own Coalesce_InitVoid_AppendString pattern.
	sbInit := peephole.Methods.Make("Ljava/lang/StringBuilder;", "<init>", "V", nil)
	sbAppend := peephole.Methods.Make("Ljava/lang/StringBuilder;", "append", "Ljava/lang/StringBuilder;", []string{"Ljava/lang/String;"})

	block := dexir.NewBasicBlock(
		dexir.NewInstruction(dexir.InvokeDirect).SetSrcs([]uint16{1}).SetMethod(sbInit),
		dexir.NewInstruction(dexir.ConstString).SetDest(2).SetString(strings.Make("hi")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{1, 2}).SetMethod(sbAppend),
		dexir.NewInstruction(dexir.MoveResultObject).SetDest(1),
	)

	return []*dexir.Class{
		{
			Name: "Lcom/example/Demo;",
			Methods: []*dexir.Method{
				{Name: "build", Owner: "Lcom/example/Demo;", Blocks: []*dexir.BasicBlock{block}},
			},
		},
	}
}
