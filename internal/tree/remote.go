package tree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/solarsync/internal/remote"
)

// BuildRemote snapshots the hierarchy reachable from rootID. If rootID is a file the
// tree holds that single file keyed by its title. Otherwise every descendant, folders
// and files alike, is keyed by its path from the root, then filtered by pattern.
// Any failed listing page aborts the build with a *ListingError.
func BuildRemote(ctx context.Context, store remote.Store, rootID string, pattern string) (Tree, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	root, err := store.Metadata(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", rootID, err)
	}

	t := make(Tree)
	if !root.IsFolder() {
		t[NewPathKey(root.Title)] = root
		return t.Filter(pattern), nil
	}

	if err := walkRemote(ctx, store, root.ID, "", t); err != nil {
		return nil, err
	}

	return t.Filter(pattern), nil
}

func walkRemote(ctx context.Context, store remote.Store, folderID string, prefix PathKey, t Tree) error {
	children, err := listAll(ctx, store, folderID)
	if err != nil {
		return err
	}

	for _, child := range children {
		key := prefix.Join(NewPathKey(child.Title))
		if key.IsRoot() || key.Base() != child.Title {
			slog.Warn("remote tree skipping unaddressable title", "title", child.Title, "id", child.ID)
			continue
		}
		if existing, dup := t[key]; dup {
			// the store allows sibling titles to collide; the first one listed wins
			slog.Warn("remote tree duplicate path", "path", key, "kept", existing.ID, "skipped", child.ID)
			continue
		}
		t[key] = child

		if child.IsFolder() {
			if err := walkRemote(ctx, store, child.ID, key, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func listAll(ctx context.Context, store remote.Store, folderID string) ([]*remote.Node, error) {
	var nodes []*remote.Node
	token := ""
	for {
		page, err := store.ListChildren(ctx, folderID, remote.DefaultPageSize, token)
		if err != nil {
			return nil, &ListingError{FolderID: folderID, Err: err}
		}
		nodes = append(nodes, page.Nodes...)
		if page.NextPageToken == "" {
			return nodes, nil
		}
		token = page.NextPageToken
	}
}
