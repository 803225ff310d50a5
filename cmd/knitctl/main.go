// Command knitctl inspects knitting machine data sets and sends patterns over serial.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/moffa90/go-kh930/archive"
	"github.com/moffa90/go-kh930/config"
	"github.com/moffa90/go-kh930/knitdata"
	"github.com/moffa90/go-kh930/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Logging, os.Stderr)
	defer closer.Close()

	app := &app{cfg: cfg, logger: logger, out: os.Stdout}
	err = app.run(ctx, os.Args[1], os.Args[2:])
	if errors.Is(err, errUsage) {
		closer.Close()
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	// set by the common flags of each command
	dir   string
	track int
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "patterns":
		return a.cmdPatterns(args)
	case "show":
		return a.cmdShow(args)
	case "dump":
		return a.cmdDump(args)
	case "free":
		return a.cmdFree(args)
	case "export":
		return a.cmdExport(args)
	case "remove":
		return a.cmdRemove(args)
	case "clear":
		return a.cmdClear(args)
	case "archive":
		return a.cmdArchive(ctx, args)
	case "restore":
		return a.cmdRestore(ctx, args)
	case "runs":
		return a.cmdRuns(ctx, args)
	case "send":
		return a.cmdSend(ctx, args)
	case "ports":
		return a.cmdPorts()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		return errUsage
	}
}

// flags returns a FlagSet carrying the -dir and -track flags shared by every
// data set command.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&a.dir, "dir", a.cfg.Data.Dir, "directory holding the sector files")
	fs.IntVar(&a.track, "track", a.cfg.Data.Track, "track number (1-40)")
	return fs
}

func (a *app) open() (*knitdata.Dataset, error) {
	return knitdata.Open(a.dir, a.track)
}

func (a *app) openArchive() (*archive.Store, error) {
	path := a.cfg.Archive.Path
	if path == "" {
		path = filepath.Join(a.dir, "knitctl.db")
	}
	return archive.Open(path, a.logger)
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Println("knitctl - KH930 pattern tool")
	fmt.Println()
	fmt.Println("Usage: knitctl <command> [-dir DIR] [-track N] [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  patterns                 List the patterns stored in a track")
	fmt.Println("  show <number>            Print a pattern (-png FILE writes an image)")
	fmt.Println("  dump                     Hex dump of the whole data set")
	fmt.Println("  free <stitches>          Show free memory and how many rows still fit")
	fmt.Println("  export <file.csv>        Export byte offsets for diffing (-annotate, -all)")
	fmt.Println("  remove <number>          Delete a pattern (-repack closes the gap)")
	fmt.Println("  clear                    Reset the track to the machine's empty state")
	fmt.Println("  archive                  Copy every pattern of the track into the archive")
	fmt.Println("  restore <id> [number]    Add an archived pattern to the track (-repack)")
	fmt.Println("  runs                     Show recent send runs (-n LIMIT)")
	fmt.Println("  send <number>            Send a pattern over serial (-port DEV, -metrics-file FILE)")
	fmt.Println("  ports                    List serial ports")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  KH930_CONFIG             Config file (default: $XDG_CONFIG_HOME/knitctl/config.yaml)")
	fmt.Println()
}
