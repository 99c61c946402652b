package backendremote

// request/response is the wire protocol this adapter speaks to a remote
// table store over a websocket connection. JSON keeps this reference
// adapter's wire format legible; a production backend would likely prefer
// a binary encoding.
//
// The remote side is treated as a plain row store keyed by an opaque ID
// it assigns: the compiled condition (internal/compiled.CompiledCondition)
// is an in-process closure and has no wire representation, so filtering
// always happens on this side, against a snapshot fetched with opSnapshot.
// Mutating ops then address specific rows by ID.
type request struct {
	Op        string                    `json:"op"`
	Rows      []map[string]any          `json:"rows,omitempty"`
	IDs       []int64                   `json:"ids,omitempty"`
	Updates   map[string]map[string]any `json:"updates,omitempty"`
	RequestID int64                     `json:"requestId"`
}

type wireRow struct {
	ID  int64          `json:"id"`
	Row map[string]any `json:"row"`
}

type response struct {
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Rows      []wireRow `json:"rows,omitempty"`
	RequestID int64     `json:"requestId"`
}

const (
	opSnapshot   = "snapshot"
	opAdd        = "add"
	opDeleteByID = "deleteByID"
	opUpdateByID = "updateByID"
)
