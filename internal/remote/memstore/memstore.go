// Package memstore is an in-process remote.Store. It backs the "mem" backend and the
// reconciler tests, and supports fault injection through hooks.
package memstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/utils"
)

// RootID is the id of the folder every new store starts with.
const RootID = "root"

// Hooks run before the matching operation. A non-nil error is returned by the operation.
type Hooks struct {
	BeforeList     func(folderID string) error
	BeforeUpload   func(node *remote.Node) error
	BeforeDownload func(node *remote.Node) error
}

type entry struct {
	node     remote.Node
	parent   string
	content  []byte
	children []string
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextID  atomic.Uint64
	hooks   Hooks

	creates   atomic.Int64
	uploads   atomic.Int64
	downloads atomic.Int64
}

func New() *Store {
	s := &Store{entries: make(map[string]*entry)}
	s.entries[RootID] = &entry{
		node: remote.Node{ID: RootID, Title: RootID, Kind: remote.KindFolder},
	}
	return s
}

// SetHooks replaces the fault injection hooks.
func (s *Store) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// Creates returns how many nodes were created through Create.
func (s *Store) Creates() int64 { return s.creates.Load() }

// Uploads returns how many successful content uploads happened.
func (s *Store) Uploads() int64 { return s.uploads.Load() }

// Downloads returns how many successful content downloads happened.
func (s *Store) Downloads() int64 { return s.downloads.Load() }

func (s *Store) ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*remote.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.hooks.BeforeList != nil {
		if err := s.hooks.BeforeList(folderID); err != nil {
			return nil, err
		}
	}

	folder, ok := s.entries[folderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, folderID)
	}
	if folder.node.Kind != remote.KindFolder {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFolder, folderID)
	}

	if pageSize <= 0 {
		pageSize = remote.DefaultPageSize
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	// stable order so page tokens stay meaningful between calls
	children := make([]*entry, 0, len(folder.children))
	for _, id := range folder.children {
		children = append(children, s.entries[id])
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].node.Title == children[j].node.Title {
			return children[i].node.ID < children[j].node.ID
		}
		return children[i].node.Title < children[j].node.Title
	})

	page := &remote.Page{}
	end := min(offset+pageSize, len(children))
	for i := offset; i < end; i++ {
		node := children[i].node
		page.Nodes = append(page.Nodes, &node)
	}
	if end < len(children) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Store) Metadata(ctx context.Context, id string) (*remote.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, id)
	}
	node := e.node
	return &node, nil
}

func (s *Store) Create(ctx context.Context, parentID string, title string, kind remote.Kind, mimeType string) (*remote.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := s.create(parentID, title, kind, mimeType)
	if err != nil {
		return nil, err
	}
	s.creates.Add(1)
	return node, nil
}

func (s *Store) create(parentID string, title string, kind remote.Kind, mimeType string) (*remote.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.entries[parentID]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s", remote.ErrNotFound, parentID)
	}
	if parent.node.Kind != remote.KindFolder {
		return nil, fmt.Errorf("%w: parent %s", remote.ErrNotFolder, parentID)
	}

	id := fmt.Sprintf("node-%06d", s.nextID.Add(1))
	s.entries[id] = &entry{
		node:   remote.Node{ID: id, Title: title, Kind: kind, MimeType: mimeType},
		parent: parentID,
	}
	parent.children = append(parent.children, id)

	node := s.entries[id].node
	return &node, nil
}

func (s *Store) Upload(ctx context.Context, id string, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	node, err := s.fileNode(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	hook := s.hooks.BeforeUpload
	s.mu.RUnlock()
	if hook != nil {
		if err := hook(node); err != nil {
			return err
		}
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[id].content = body
	s.mu.Unlock()

	s.uploads.Add(1)
	return nil
}

func (s *Store) Download(ctx context.Context, id string, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	node, err := s.fileNode(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	hook := s.hooks.BeforeDownload
	body := append([]byte(nil), s.entries[id].content...)
	s.mu.RUnlock()

	if hook != nil {
		if err := hook(node); err != nil {
			return err
		}
	}

	if err := utils.WriteBytesAtomic(localPath, body); err != nil {
		return err
	}

	s.downloads.Add(1)
	return nil
}

// Content returns the stored bytes of file id.
func (s *Store) Content(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.content...), true
}

// Mkdir creates a folder under parentID without counting it as a Create call.
func (s *Store) Mkdir(parentID, title string) (*remote.Node, error) {
	return s.create(parentID, title, remote.KindFolder, "")
}

// Put creates a file with content under parentID without counting it as a Create call.
func (s *Store) Put(parentID, title string, content []byte) (*remote.Node, error) {
	node, err := s.create(parentID, title, remote.KindFile, "")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.entries[node.ID].content = append([]byte(nil), content...)
	s.mu.Unlock()
	return node, nil
}

// Len returns the number of nodes, the root included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) fileNode(id string) (*remote.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, id)
	}
	if e.node.Kind == remote.KindFolder {
		return nil, fmt.Errorf("node %s is a folder", id)
	}
	node := e.node
	return &node, nil
}

var _ remote.Store = (*Store)(nil)
