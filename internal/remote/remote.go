// Package remote describes the capability a hierarchical, ID-addressed folder store
// must provide to be mirrored against a local directory.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPageSize is the number of children requested per listing page.
const DefaultPageSize = 100

var (
	ErrNotFound  = errors.New("node not found")
	ErrNotFolder = errors.New("node is not a folder")
)

type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is an identity record captured at snapshot time. It is never a live handle.
// ID is empty for nodes that only exist locally.
type Node struct {
	ID       string
	Title    string
	Kind     Kind
	MimeType string
}

func (n *Node) IsFolder() bool {
	return n != nil && n.Kind == KindFolder
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q (id=%s)", n.Kind, n.Title, n.ID)
}

// Page is one page of a folder listing. An empty NextPageToken means the listing is complete.
type Page struct {
	Nodes         []*Node
	NextPageToken string
}

// Store is the remote folder store. Implementations do not retry; any error is
// returned to the caller as-is.
type Store interface {
	// ListChildren returns one page of the direct children of folderID.
	ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*Page, error)
	// Metadata fetches the node referenced by id.
	Metadata(ctx context.Context, id string) (*Node, error)
	// Create adds a new folder or empty file under parentID and returns it.
	Create(ctx context.Context, parentID string, title string, kind Kind, mimeType string) (*Node, error)
	// Upload replaces the content of file id with the bytes at localPath.
	Upload(ctx context.Context, id string, localPath string) error
	// Download writes the content of file id to localPath.
	Download(ctx context.Context, id string, localPath string) error
}
