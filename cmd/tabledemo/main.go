// tabledemo is a small runnable example wiring a Table Instance over either
// the in-memory or the remote websocket backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cepruntime/tablestore/internal/backend"
	"github.com/cepruntime/tablestore/internal/backendmem"
	"github.com/cepruntime/tablestore/internal/backendremote"
	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/table"
	"github.com/cepruntime/tablestore/internal/tabledef"
	"github.com/cepruntime/tablestore/pkg"
)

func main() {
	backendName := flag.String("backend", "mem", "backend adapter to use: mem or remote")
	remoteURL := flag.String("remote-url", "ws://localhost:7085", "websocket url, used when -backend=remote")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		pkg.SetLogLevel(pkg.LogLevelDebug)
	} else {
		pkg.SetLogLevel(pkg.LogLevelErrOnly)
	}

	def, err := tabledef.New("accounts", []tabledef.ColumnDefinition{
		{Name: "id", Type: coltype.Int},
		{Name: "owner", Type: coltype.String},
		{Name: "balance", Type: coltype.Long},
	})
	if err != nil {
		pkg.FatalLog(err)
	}

	adapter, err := newAdapter(*backendName, *remoteURL)
	if err != nil {
		pkg.FatalLog(err)
	}

	inst, err := table.New("tabledemo", def, adapter, config.Map{}, nil)
	if err != nil {
		pkg.FatalLog(err)
	}

	exit := make(chan os.Signal, 2)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-exit
		inst.Shutdown()
		os.Exit(0)
	}()

	ctx := context.Background()
	runDemoSequence(ctx, inst, def)
	inst.Shutdown()
}

func newAdapter(name, remoteURL string) (backend.Adapter, error) {
	switch name {
	case "mem":
		return backendmem.New(), nil
	case "remote":
		return backendremote.New(remoteURL)
	default:
		return nil, fmt.Errorf("unknown backend %q, want mem or remote", name)
	}
}

func runDemoSequence(ctx context.Context, inst *table.Instance, def *tabledef.Definition) {
	err := inst.AddEvents(ctx, event.NewChunk([]event.StreamEvent{
		{Row: event.Row{"id": 1, "owner": "ada", "balance": int64(1000)}},
		{Row: event.Row{"id": 2, "owner": "grace", "balance": int64(2500)}},
	}))
	if err != nil {
		pkg.ErrorLog(fmt.Sprintf("addEvents failed: %v", err))
		return
	}

	matchMeta := compiled.NewMatchingMetaInfo(map[string]coltype.ColumnType{"id": coltype.Int})
	cond, err := compiled.CompileCondition(def, matchMeta, compiled.ConditionSpec{
		Terms: []compiled.Term{{Column: "id", Op: compiled.OpEqual, Operand: compiled.Operand{FromStream: "id"}}},
	})
	if err != nil {
		pkg.FatalLog(err)
	}

	matching := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"id": 2}}}
	found, err := inst.ContainsEvent(ctx, matching, cond)
	if err != nil {
		pkg.ErrorLog(fmt.Sprintf("containsEvent failed: %v", err))
		return
	}
	pkg.InfoLog(fmt.Sprintf("contains account 2: %v", found))

	chunk, err := inst.Find(ctx, matching, cond)
	if err != nil {
		pkg.ErrorLog(fmt.Sprintf("find failed: %v", err))
		return
	}
	for chunk.HasNext() {
		pkg.InfoLog(fmt.Sprintf("found row: %v", chunk.Next().Row))
	}

	updateSet, err := inst.CompileUpdateSet(matchMeta, []compiled.Assignment{
		{Column: "balance", Expr: compiled.Literal{Value: int64(2600)}},
	})
	if err != nil {
		pkg.FatalLog(err)
	}

	extractor := func(e event.StateEvent) event.StreamEvent {
		return event.StreamEvent{Row: event.Row{"id": e.Stream.Row["id"], "owner": "unknown", "balance": int64(0)}}
	}
	if err := inst.UpdateOrAddEvents(ctx, event.NewChunk([]event.StateEvent{matching}), cond, updateSet, extractor); err != nil {
		pkg.ErrorLog(fmt.Sprintf("updateOrAddEvents failed: %v", err))
	}
}
