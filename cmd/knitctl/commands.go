package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/moffa90/go-kh930/controller"
	"github.com/moffa90/go-kh930/knitdata"
	"github.com/moffa90/go-kh930/metrics"
	"github.com/moffa90/go-kh930/protocol"
	"github.com/moffa90/go-kh930/serialport"
)

func parseArgs(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	rest := fs.Args()
	if len(rest) < want {
		return nil, errUsage
	}
	return rest, nil
}

func atoi(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

func (a *app) cmdPatterns(args []string) error {
	fs := a.flags("patterns")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	ds, err := a.open()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	patterns := ds.Patterns()
	if len(patterns) == 0 {
		fmt.Fprintln(a.out, "No patterns stored.")
	}
	for _, p := range patterns {
		green.Fprintf(a.out, "%d", p.Number)
		fmt.Fprintf(a.out, "  %3d stitches x %3d rows  %4d bytes  memo 0x%04X\n",
			p.Stitches, p.Rows, p.Region.Size(), p.MemoOffset)
	}
	fmt.Fprintf(a.out, "%d bytes free\n", ds.FreeBytes())
	if ds.Fragmented() {
		color.New(color.FgYellow).Fprintln(a.out, "storage is fragmented; run remove -repack")
	}
	return nil
}

func (a *app) cmdShow(args []string) error {
	fs := a.flags("show")
	pngPath := fs.String("png", "", "write the pattern as a PNG image")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	number, err := atoi("pattern number", rest[0])
	if err != nil {
		return err
	}

	ds, err := a.open()
	if err != nil {
		return err
	}
	p, ok := ds.Pattern(number)
	if !ok {
		return fmt.Errorf("pattern %d: %w", number, knitdata.ErrPatternNotFound)
	}

	fmt.Fprintf(a.out, "Pattern %d: %d stitches x %d rows\n", p.Number, p.Stitches, p.Rows)
	fmt.Fprint(a.out, p.String())

	if *pngPath != "" {
		f, err := os.Create(*pngPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, p.Image()); err != nil {
			return fmt.Errorf("encoding %s: %w", *pngPath, err)
		}
	}
	return nil
}

func (a *app) cmdDump(args []string) error {
	fs := a.flags("dump")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	ds, err := a.open()
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, ds.HexDump())
	return nil
}

func (a *app) cmdFree(args []string) error {
	fs := a.flags("free")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	stitches, err := atoi("stitch count", rest[0])
	if err != nil {
		return err
	}
	if stitches < 1 || stitches > knitdata.MaxBCD {
		return fmt.Errorf("stitch count %d out of range 1-%d", stitches, knitdata.MaxBCD)
	}

	ds, err := a.open()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d bytes free, room for about %d rows of %d stitches\n",
		ds.FreeBytes(), ds.FreeRows(stitches), stitches)
	return nil
}

func (a *app) cmdExport(args []string) error {
	fs := a.flags("export")
	annotate := fs.Bool("annotate", false, "add a column describing each offset")
	all := fs.Bool("all", false, "include pattern, needle and motif ranges")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	ds, err := a.open()
	if err != nil {
		return err
	}

	opts := knitdata.ExportOptions{Annotate: *annotate}
	if *all {
		opts.Exclude = []string{}
	}

	f, err := os.Create(rest[0])
	if err != nil {
		return err
	}
	if err := ds.ExportOffsets(f, knitdata.AllOffsets(), opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) cmdRemove(args []string) error {
	fs := a.flags("remove")
	repack := fs.Bool("repack", false, "close the gap left by the removed pattern")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	number, err := atoi("pattern number", rest[0])
	if err != nil {
		return err
	}

	ds, err := a.open()
	if err != nil {
		return err
	}
	if err := ds.Remove(number); err != nil {
		return err
	}
	if *repack {
		if err := ds.Repack(); err != nil {
			return err
		}
	}
	if err := a.save(ds); err != nil {
		return err
	}
	a.logger.Info("pattern removed", "number", number, "track", a.track)
	return nil
}

// save writes ds back to the selected track.
func (a *app) save(ds *knitdata.Dataset) error {
	if err := ds.Save(a.dir, a.track); err != nil {
		if errors.Is(err, knitdata.ErrFragmented) {
			return fmt.Errorf("%w: rerun with -repack", err)
		}
		return err
	}
	return nil
}

func (a *app) cmdClear(args []string) error {
	fs := a.flags("clear")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if err := knitdata.Blank().Save(a.dir, a.track); err != nil {
		return err
	}
	a.logger.Info("track cleared", "track", a.track)
	return nil
}

func (a *app) cmdArchive(ctx context.Context, args []string) error {
	fs := a.flags("archive")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	ds, err := a.open()
	if err != nil {
		return err
	}
	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	source := fmt.Sprintf("%s track %d", a.dir, a.track)
	for _, p := range ds.Patterns() {
		rec, err := store.SavePattern(ctx, p, source)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d -> %s\n", p.Number, rec.ID)
	}
	return nil
}

func (a *app) cmdRestore(ctx context.Context, args []string) error {
	fs := a.flags("restore")
	repack := fs.Bool("repack", false, "close the gap left by a replaced pattern")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	number := 0
	if len(rest) > 1 {
		if number, err = atoi("pattern number", rest[1]); err != nil {
			return err
		}
	}

	ds, err := a.open()
	if err != nil {
		return err
	}
	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Restore(ctx, rest[0], ds, number); err != nil {
		var ce *knitdata.CapacityError
		if errors.As(err, &ce) && !ce.Slots {
			fmt.Fprintf(a.out, "%d bytes free, pattern needs %d\n", ce.Free, ce.Need)
		}
		return err
	}
	if *repack {
		if err := ds.Repack(); err != nil {
			return err
		}
	}
	return a.save(ds)
}

func (a *app) cmdRuns(ctx context.Context, args []string) error {
	fs := a.flags("runs")
	limit := fs.Int("n", 20, "number of runs to show")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %-9s %d/%d rows", r.Started.Local().Format("2006-01-02 15:04:05"),
			r.ID, r.Outcome, r.RowsSent, r.Rows)
		if r.Err != nil {
			line += "  " + r.Err.Error()
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	fs := a.flags("send")
	port := fs.String("port", a.cfg.Serial.Port, "serial device")
	metricsFile := fs.String("metrics-file", a.cfg.Metrics.Textfile, "write Prometheus metrics to this file")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	number, err := atoi("pattern number", rest[0])
	if err != nil {
		return err
	}

	ds, err := a.open()
	if err != nil {
		return err
	}
	p, ok := ds.Pattern(number)
	if !ok {
		return fmt.Errorf("pattern %d: %w", number, knitdata.ErrPatternNotFound)
	}

	opts := []controller.Option{
		controller.WithLogger(a.logger),
		controller.WithAckTimeout(a.cfg.Protocol.AckTimeout),
		controller.WithMaxRetries(a.cfg.Protocol.MaxRetries),
		controller.WithTickInterval(a.cfg.Protocol.TickInterval),
		controller.WithStatusCallback(func(s controller.Status) {
			if s.Running {
				fmt.Fprintf(a.out, "\r%-17s row %3d/%d  %5.1f%%", s.State, s.Row, s.Rows, s.Progress*100)
			}
		}),
	}
	if store, err := a.openArchive(); err == nil {
		defer store.Close()
		opts = append(opts, controller.WithRunRecorder(store))
	} else {
		a.logger.Warn("run history disabled", "error", err)
	}
	var m *metrics.Metrics
	if *metricsFile != "" {
		m = metrics.New()
		opts = append(opts, controller.WithRunRecorder(m))
	}

	serialCfg := a.cfg.SerialPort()
	serialCfg.Port = *port
	ctrl := controller.New(serialport.OpenerFor(serialCfg), opts...)
	if err := ctrl.Connect(); err != nil {
		return err
	}
	defer ctrl.Disconnect()

	err = ctrl.Send(ctx, protocol.EncodePattern(p.RowData))
	fmt.Fprintln(a.out)
	if m != nil {
		if werr := m.WriteTextfile(*metricsFile); werr != nil {
			a.logger.Warn("metrics not written", "error", werr)
		}
	}
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(a.out, "Pattern %d sent (%d rows)\n", p.Number, p.Rows)
	return nil
}

func (a *app) cmdPorts() error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(a.out, "No serial ports found.")
	}
	for _, p := range ports {
		fmt.Fprintln(a.out, p)
	}
	return nil
}
