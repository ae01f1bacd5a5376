package graph

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// CodeInvalidParent indicates the parent reference is neither a branch
	// nor a node of the project.
	CodeInvalidParent ErrorCode = "INVALID_PARENT"

	// CodeProjectLocked indicates the project write lock was not acquired
	// within the timeout. The only retryable code.
	CodeProjectLocked ErrorCode = "PROJECT_LOCKED"

	// CodeLockedByTransaction indicates a write outside the open
	// transaction, or a second transaction start.
	CodeLockedByTransaction ErrorCode = "LOCKED_BY_TRANSACTION"

	// CodeInvalidTransaction indicates a transaction id that does not match
	// the open transaction.
	CodeInvalidTransaction ErrorCode = "INVALID_TRANSACTION"

	// CodeMissingTransactionID indicates a transaction end without an id.
	CodeMissingTransactionID ErrorCode = "MISSING_TRANSACTION_ID"

	// CodeNodeNotFound indicates a read of an id that resolves to nothing.
	CodeNodeNotFound ErrorCode = "NODE_NOT_FOUND"

	// CodeProjectNotFound indicates the (owner, project) does not exist.
	CodeProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"

	// CodeProjectExists indicates a project creation for a taken name.
	CodeProjectExists ErrorCode = "PROJECT_EXISTS"

	// CodeInvalidName indicates an owner or project name that fails
	// validation.
	CodeInvalidName ErrorCode = "INVALID_NAME"

	// CodeBranchingRefused indicates a transaction member write whose
	// parent is not a branch head.
	CodeBranchingRefused ErrorCode = "BRANCHING_REFUSED"

	// CodeBranchNotFound indicates a branch id that does not exist.
	CodeBranchNotFound ErrorCode = "BRANCH_NOT_FOUND"

	// CodeBranchGroupNotFound indicates a branch group id that does not
	// exist.
	CodeBranchGroupNotFound ErrorCode = "BRANCH_GROUP_NOT_FOUND"
)

// Error is a caller-facing error from the history graph.
//
// Errors compare equal under errors.Is when their codes match, so callers
// test against the sentinels:
//
//	if errors.Is(err, graph.ErrLockedByTransaction) { ... }
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Owner and Project identify the affected project, when known.
	Owner   string
	Project string

	// ID is the node, branch, group or transaction id involved, if any.
	ID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Project != "" && e.ID != "":
		return fmt.Sprintf("%s: %s (project=%s/%s, id=%s)", e.Code, e.Message, e.Owner, e.Project, e.ID)
	case e.Project != "":
		return fmt.Sprintf("%s: %s (project=%s/%s)", e.Code, e.Message, e.Owner, e.Project)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is. Only Code is compared.
var (
	ErrInvalidParent        = &Error{Code: CodeInvalidParent, Message: "parent does not resolve"}
	ErrProjectLocked        = &Error{Code: CodeProjectLocked, Message: "project is locked"}
	ErrLockedByTransaction  = &Error{Code: CodeLockedByTransaction, Message: "project is locked by a transaction"}
	ErrInvalidTransaction   = &Error{Code: CodeInvalidTransaction, Message: "transaction id does not match the open transaction"}
	ErrMissingTransactionID = &Error{Code: CodeMissingTransactionID, Message: "transaction id is required"}
	ErrNodeNotFound         = &Error{Code: CodeNodeNotFound, Message: "node not found"}
	ErrProjectNotFound      = &Error{Code: CodeProjectNotFound, Message: "project not found"}
	ErrProjectExists        = &Error{Code: CodeProjectExists, Message: "project already exists"}
	ErrInvalidName          = &Error{Code: CodeInvalidName, Message: "invalid name"}
	ErrBranchingRefused     = &Error{Code: CodeBranchingRefused, Message: "branching refused in middle of transaction"}
	ErrBranchNotFound       = &Error{Code: CodeBranchNotFound, Message: "branch not found"}
	ErrBranchGroupNotFound  = &Error{Code: CodeBranchGroupNotFound, Message: "branch group not found"}
)

func newError(code ErrorCode, owner, project, id, message string) *Error {
	return &Error{Code: code, Message: message, Owner: owner, Project: project, ID: id}
}

// CodeOf returns the code of a graph error, or "" for any other error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsRetryable returns true if retrying the same call may succeed.
// Only lock timeouts are transient; every other code is a caller error.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeProjectLocked
}
