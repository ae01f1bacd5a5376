package graph

import (
	"context"
	"sync"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/record"
)

// openTransaction is the in-memory state of a project's open transaction.
type openTransaction struct {
	id      string
	version int64
}

// transactions tracks at most one open transaction per project.
//
// State lives in memory only. It is read without the project lock for the
// fail-fast gate and changed only while the project lock is held.
type transactions struct {
	mu   sync.Mutex
	open map[lock.Key]openTransaction
}

func newTransactions() *transactions {
	return &transactions{open: make(map[lock.Key]openTransaction)}
}

func (t *transactions) get(key lock.Key) (openTransaction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	txn, ok := t.open[key]
	return txn, ok
}

func (t *transactions) begin(key lock.Key, txn openTransaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[key] = txn
}

func (t *transactions) end(key lock.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, key)
}

// drop discards the state of a deleted project. Reports whether a
// transaction was open.
func (t *transactions) drop(key lock.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.open[key]
	delete(t.open, key)
	return ok
}

// gateResult says how a draft relates to the open transaction.
type gateResult int

const (
	gateOutside gateResult = iota // no transaction involved
	gateOpens                     // transaction_start that opens a transaction
	gateMember                    // write inside the open transaction
	gateCloses                    // transaction_end of the open transaction
)

// gate applies the transaction rules to a draft:
//   - a start with an id opens a transaction when none is open
//   - any start while one is open fails with LockedByTransaction
//   - an untagged write while one is open fails with LockedByTransaction
//   - a tagged write that does not match the open transaction (or with none
//     open) fails with InvalidTransaction
func gate(owner, project string, d record.Draft, txn openTransaction, isOpen bool) (gateResult, error) {
	isStart := d.Type == record.TypeTransactionStart && d.TransactionID != ""

	if !isOpen {
		switch {
		case isStart:
			return gateOpens, nil
		case d.TransactionID != "":
			return 0, newError(CodeInvalidTransaction, owner, project, d.TransactionID, "no transaction is open")
		default:
			return gateOutside, nil
		}
	}

	switch {
	case isStart:
		return 0, newError(CodeLockedByTransaction, owner, project, txn.id, "a transaction is already open")
	case d.TransactionID == "":
		return 0, newError(CodeLockedByTransaction, owner, project, txn.id, "write outside the open transaction")
	case d.TransactionID != txn.id:
		return 0, newError(CodeInvalidTransaction, owner, project, d.TransactionID, "transaction id does not match the open transaction")
	case d.Type == record.TypeTransactionEnd:
		return gateCloses, nil
	default:
		return gateMember, nil
	}
}

// TransactionMarker returns the content of a transaction_start or
// transaction_end node.
func TransactionMarker(kind string) record.Object {
	return record.Object{"type": record.String(kind)}
}

// StartTransaction writes a transaction_start node and opens a transaction
// with a fresh id. Every write tagged with the id until EndTransaction
// shares the start node's version.
//
// Fails with LockedByTransaction if the project already has an open
// transaction.
func (g *Graph) StartTransaction(ctx context.Context, owner, project, parentRef, author string) (branchID, nodeID, txnID string, err error) {
	txnID = g.ids.NewID()
	branchID, nodeID, err = g.AddNode(ctx, owner, project, record.Draft{
		Type:          record.TypeTransactionStart,
		ParentRef:     parentRef,
		Author:        author,
		Content:       TransactionMarker("start"),
		TransactionID: txnID,
	}, false)
	if err != nil {
		return "", "", "", err
	}
	return branchID, nodeID, txnID, nil
}

// EndTransaction writes the transaction_end node of the open transaction
// and closes it. The next untagged write gets the frozen version plus one.
//
// Fails with MissingTransactionID if txnID is empty and with
// InvalidTransaction if it does not match the open transaction.
func (g *Graph) EndTransaction(ctx context.Context, owner, project, parentRef, author, txnID string) (branchID, nodeID, closedID string, err error) {
	if txnID == "" {
		return "", "", "", newError(CodeMissingTransactionID, owner, project, "", "transaction end requires a transaction id")
	}
	branchID, nodeID, err = g.AddNode(ctx, owner, project, record.Draft{
		Type:          record.TypeTransactionEnd,
		ParentRef:     parentRef,
		Author:        author,
		Content:       TransactionMarker("end"),
		TransactionID: txnID,
	}, false)
	if err != nil {
		return "", "", "", err
	}
	return branchID, nodeID, txnID, nil
}

// OpenTransaction returns the id of the project's open transaction, if any.
func (g *Graph) OpenTransaction(owner, project string) (string, bool) {
	txn, ok := g.txns.get(lock.Key{Owner: owner, Project: project})
	return txn.id, ok
}
