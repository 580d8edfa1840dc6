// Package terminal implements the line-oriented maintenance console: live
// measurements, status and parameter editing over stdin or a serial port.
package terminal

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sweeney/solar-tracker/internal/control"
	"github.com/sweeney/solar-tracker/internal/params"
	"github.com/sweeney/solar-tracker/internal/store"
)

// Source provides the live values the console reports.
type Source interface {
	Measurements() control.Measurements
	Status() control.Status
}

// Terminal executes console commands. It is not safe for concurrent use and
// must run on the control goroutine, since it edits live parameters.
type Terminal struct {
	src    Source
	params *params.Registry
	store  store.Store
	out    io.Writer

	// OnChange, if set, is called after parameters change.
	OnChange func()
}

// New creates a console writing replies to out. st may be nil to disable
// persistence.
func New(src Source, reg *params.Registry, st store.Store, out io.Writer) *Terminal {
	return &Terminal{src: src, params: reg, store: st, out: out}
}

// Execute runs one command line.
func (t *Terminal) Execute(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		t.help()
	case "meas":
		t.meas()
	case "param", "params":
		t.param()
	case "status":
		t.status()
	case "set":
		switch len(args) {
		case 0:
			t.settable()
		case 2:
			t.set(ctx, args[0], args[1])
		default:
			t.printf("usage: set <name> <value>\n")
		}
	case "factory_reset":
		t.factoryReset(ctx)
	default:
		t.printf("unknown command %q, type help\n", fields[0])
	}
}

func (t *Terminal) printf(format string, args ...interface{}) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) help() {
	t.printf("commands:\n")
	t.printf("  help                 show this list\n")
	t.printf("  meas                 sensor readings\n")
	t.printf("  param                all parameters with current values\n")
	t.printf("  status               tracker and motor state\n")
	t.printf("  set                  settable parameters and ranges\n")
	t.printf("  set <name> <value>   change a parameter (long or short name)\n")
	t.printf("  factory_reset        restore and persist defaults\n")
}

func (t *Terminal) meas() {
	m := t.src.Measurements()
	t.printf("east:       %d ohms (filtered %.1f)\n", m.EastRaw, m.EastFiltered)
	t.printf("west:       %d ohms (filtered %.1f)\n", m.WestRaw, m.WestFiltered)
	t.printf("brightness: %.1f ohms\n", m.Brightness)
}

func (t *Terminal) param() {
	values := t.params.Values()
	for _, p := range t.params.Params() {
		t.printf("%-24s %-5s %12s %s\n", p.Name, p.Short, p.Format(values[p.Name]), p.Unit)
	}
}

func (t *Terminal) status() {
	s := t.src.Status()
	t.printf("state:              %s\n", s.Tracker)
	t.printf("motor:              %s\n", s.Motor)
	t.printf("night:              %t\n", s.Night)
	t.printf("direction:          %s\n", s.Direction)
	if s.Episode != "" {
		t.printf("episode:            %s\n", s.Episode)
	}
	t.printf("reversal tries:     %d\n", s.ReversalTries)
	t.printf("next adjustment:    %s\n", s.UntilNextAdjustment.Truncate(time.Second))
	t.printf("in state for:       %s\n", s.SinceStateChange.Truncate(time.Second))
	t.printf("last movement:      %s\n", s.LastMovement)
	t.printf("movement history:   %d moves, avg %s\n", s.HistoryCount, s.HistoryAverage)
	t.printf("interlock trips:    %d\n", s.InterlockTrips)
	t.printf("max move stops:     %d\n", s.MaxMoveStops)
	t.printf("sensor read errors: %d\n", s.SensorErrors)
}

func (t *Terminal) settable() {
	for _, p := range t.params.Params() {
		unit := p.Unit
		if unit == "" {
			unit = "-"
		}
		t.printf("%-24s %-5s %-20s %s\n", p.Name, p.Short, p.Range(), unit)
	}
}

func (t *Terminal) set(ctx context.Context, name, raw string) {
	p, v, err := t.params.Set(name, raw)
	if err != nil {
		t.printf("error: %v\n", err)
		return
	}
	t.printf("ok: %s = %s %s\n", p.Name, p.Format(v), p.Unit)
	if t.store != nil {
		if err := t.store.Save(ctx, p.Name, v); err != nil {
			log.Printf("terminal: save %s: %v", p.Name, err)
			t.printf("warning: not persisted: %v\n", err)
		}
	}
	t.changed()
}

func (t *Terminal) factoryReset(ctx context.Context) {
	if err := t.params.FactoryReset(); err != nil {
		t.printf("error: %v\n", err)
		return
	}
	t.printf("ok: factory defaults restored\n")
	if t.store != nil {
		if err := t.store.Replace(ctx, t.params.Values()); err != nil {
			log.Printf("terminal: persist defaults: %v", err)
			t.printf("warning: not persisted: %v\n", err)
		}
	}
	t.changed()
}

func (t *Terminal) changed() {
	if t.OnChange != nil {
		t.OnChange()
	}
}
