// Package backendremote is a reference Backend Adapter that talks to a
// remote table store over a websocket connection: the potentially-remote,
// potentially-failing storage case, using the standard
// ws.DefaultDialer.Dial / WriteJSON / ReadJSON / graceful CloseMessage
// sequence against Add/Find/Delete/Update/UpdateOrAdd/Contains primitives.
//
// Every network failure — dial, write, read, or a dropped connection —
// is reported as backend.Unavailable so the Table Instance's
// retry/backoff state machine (internal/table) can treat it as transient
// rather than fatal.
package backendremote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	ws "github.com/gorilla/websocket"

	"github.com/cepruntime/tablestore/internal/backend"
	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
	"github.com/cepruntime/tablestore/pkg"
)

// Adapter is a backend.Adapter that forwards every operation to a remote
// process over a single websocket connection.
type Adapter struct {
	url *url.URL
	def *tabledef.Definition

	mu     sync.Mutex
	conn   *ws.Conn
	reqSeq atomic.Int64
}

// New builds an Adapter that will dial rawURL (e.g. "ws://localhost:7085")
// on Connect. rawURL is parsed eagerly so a malformed address fails at
// wiring time rather than on the first connect attempt.
func New(rawURL string) (*Adapter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("backendremote: invalid url: %w", err)
	}
	return &Adapter{url: u}, nil
}

func (a *Adapter) Init(def *tabledef.Definition, cfg config.Reader) error {
	a.def = def
	q := a.url.Query()
	if table, ok := cfg.String("table"); ok {
		q.Set("table", table)
	} else {
		q.Set("table", def.ID())
	}
	a.url.RawQuery = q.Encode()
	return nil
}

// Connect dials the remote store. A dial failure is always reported as
// connection-unavailable: there is no way to distinguish "server down"
// from "fatal misconfiguration" at the transport level, so the adapter
// resolves that ambiguity conservatively.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}

	dialer := *ws.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, a.url.String(), nil)
	if err != nil {
		return backend.Unavailable(err)
	}

	pkg.InfoLog(fmt.Sprintf("backendremote: connected to %s", a.url.Host))
	a.conn = conn
	return nil
}

func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

func (a *Adapter) Destroy() {
	a.Disconnect()
}

func (a *Adapter) closeLocked() {
	if a.conn == nil {
		return
	}
	_ = a.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "shutdown"))
	_ = a.conn.Close()
	a.conn = nil
}

// roundTrip sends req and waits for the matching response. Any transport
// error drops the connection (so the next call re-dials through Connect)
// and is surfaced as connection-unavailable.
func (a *Adapter) roundTrip(req request) (response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return response{}, backend.Unavailable(fmt.Errorf("backendremote: not connected"))
	}

	req.RequestID = a.reqSeq.Add(1)
	if err := a.conn.WriteJSON(req); err != nil {
		a.closeLocked()
		return response{}, backend.Unavailable(err)
	}

	var res response
	if err := a.conn.ReadJSON(&res); err != nil {
		a.closeLocked()
		return response{}, backend.Unavailable(err)
	}
	if !res.OK {
		return res, fmt.Errorf("backendremote: %s", res.Error)
	}
	return res, nil
}

// snapshot fetches every row currently held remotely. Filtering against a
// compiled condition always happens locally: the condition is an
// in-process closure with no wire representation.
func (a *Adapter) snapshot() ([]wireRow, error) {
	res, err := a.roundTrip(request{Op: opSnapshot})
	if err != nil {
		return nil, err
	}
	for i, wr := range res.Rows {
		res.Rows[i].Row = a.normalizeRow(wr.Row)
	}
	return res.Rows, nil
}

// normalizeRow restores declared column types after a JSON round trip,
// where every number decodes as float64 regardless of the column's
// declared width (see coltype.ColumnType.Coerce).
func (a *Adapter) normalizeRow(row map[string]any) map[string]any {
	for _, col := range a.def.Columns() {
		if v, ok := row[col.Name]; ok {
			row[col.Name] = col.Type.Coerce(v)
		}
	}
	return row
}

func (a *Adapter) Add(_ context.Context, chunk *event.Chunk[event.StreamEvent]) error {
	var rows []map[string]any
	for chunk.HasNext() {
		rows = append(rows, map[string]any(chunk.Next().Row))
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := a.roundTrip(request{Op: opAdd, Rows: rows})
	return err
}

func (a *Adapter) Find(_ context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) ([]event.StreamEvent, error) {
	rows, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	var out []event.StreamEvent
	for _, wr := range rows {
		row := event.Row(wr.Row)
		if cond == nil || cond.Evaluate(row, matching) {
			out = append(out, event.StreamEvent{Row: row})
		}
	}
	return out, nil
}

func (a *Adapter) Contains(_ context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) (bool, error) {
	rows, err := a.snapshot()
	if err != nil {
		return false, err
	}
	for _, wr := range rows {
		if cond == nil || cond.Evaluate(event.Row(wr.Row), matching) {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) matchingIDs(matching event.StateEvent, cond *compiled.CompiledCondition) ([]int64, error) {
	rows, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, wr := range rows {
		if cond == nil || cond.Evaluate(event.Row(wr.Row), matching) {
			ids = append(ids, wr.ID)
		}
	}
	return ids, nil
}

func (a *Adapter) Delete(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition) error {
	for chunk.HasNext() {
		e := chunk.Next()
		ids, err := a.matchingIDs(e, cond)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			continue
		}
		if _, err := a.roundTrip(request{Op: opDeleteByID, IDs: ids}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) Update(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet) error {
	for chunk.HasNext() {
		e := chunk.Next()
		ids, err := a.matchingIDs(e, cond)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			continue
		}
		patch := map[string]any(updateSet.Apply(e))
		updates := make(map[string]map[string]any, len(ids))
		for _, id := range ids {
			updates[strconv.FormatInt(id, 10)] = patch
		}
		if _, err := a.roundTrip(request{Op: opUpdateByID, Updates: updates}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) UpdateOrAdd(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet, extractor event.AddingStreamEventExtractor) error {
	for chunk.HasNext() {
		e := chunk.Next()
		ids, err := a.matchingIDs(e, cond)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			patch := map[string]any(updateSet.Apply(e))
			updates := make(map[string]map[string]any, len(ids))
			for _, id := range ids {
				updates[strconv.FormatInt(id, 10)] = patch
			}
			if _, err := a.roundTrip(request{Op: opUpdateByID, Updates: updates}); err != nil {
				return err
			}
			continue
		}
		newRow := map[string]any(extractor(e).Row)
		if _, err := a.roundTrip(request{Op: opAdd, Rows: []map[string]any{newRow}}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) CompileUpdateSet(def *tabledef.Definition, matchingMeta compiled.MatchingMetaInfo, assignments []compiled.Assignment) (*compiled.CompiledUpdateSet, error) {
	return compiled.CompileUpdateSet(def, matchingMeta, assignments)
}

var _ backend.Adapter = (*Adapter)(nil)
