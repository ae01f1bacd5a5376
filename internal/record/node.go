package record

// Well-known node types. The store treats type as an opaque tag; these are
// the tags the core itself writes or inspects.
const (
	TypeChat             = "chat"
	TypeMessage          = "message"
	TypeArtifact         = "artifact"
	TypeStage            = "stage"
	TypeMerge            = "merge"
	TypeTransactionStart = "transaction_start"
	TypeTransactionEnd   = "transaction_end"
)

// Node is an immutable history record.
//
// Version is the project-wide generation counter. It is unique per write
// except among nodes of one open transaction, which share the frozen value.
// Timestamp is Unix seconds; all ordering uses Version, never Timestamp.
type Node struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ParentID      string `json:"parent_id,omitempty"`
	Author        string `json:"author"`
	Content       Object `json:"content"`
	Version       int64  `json:"version"`
	Timestamp     int64  `json:"timestamp"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// IsRoot reports whether the node starts a history (no parent).
func (n Node) IsRoot() bool {
	return n.ParentID == ""
}

// Draft is a node submitted for writing.
//
// ParentRef is empty for a new root, otherwise a branch id (continue that
// branch's head) or a node id. TransactionID ties the write to the open
// transaction of the project.
type Draft struct {
	Type          string
	ParentRef     string
	Author        string
	Content       Object
	TransactionID string
}

// Branch is a named pointer to the current head of one line of history.
type Branch struct {
	ID     string `json:"branch_id"`
	HeadID string `json:"head_id"`
}

// BranchGroup is metadata only: a versioned list of branch ids with a
// description. It has no effect on the DAG.
type BranchGroup struct {
	ID          string   `json:"group_id"`
	BranchIDs   []string `json:"branch_ids"`
	Description string   `json:"description"`
	Version     int64    `json:"version"`
}

// Project is the namespace for one history graph under one owner.
type Project struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}
