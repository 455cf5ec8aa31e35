// Package drive implements remote.Store on Google Drive v3.
package drive

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/utils"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FolderMimeType marks a Drive file as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

const nodeFields = "id, name, mimeType"

type Store struct {
	svc *drive.Service
}

// New authenticates with a base64 encoded service account key.
func New(ctx context.Context, credentialsB64 string) (*Store, error) {
	if credentialsB64 == "" {
		return nil, errors.New("drive: credentials are required")
	}
	raw, err := base64.StdEncoding.DecodeString(credentialsB64)
	if err != nil {
		return nil, fmt.Errorf("drive: decode credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("drive: parse credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return NewWithService(svc), nil
}

func NewWithService(svc *drive.Service) *Store {
	return &Store{svc: svc}
}

func (s *Store) ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*remote.Page, error) {
	if pageSize <= 0 {
		pageSize = remote.DefaultPageSize
	}

	call := s.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		PageSize(int64(pageSize)).
		Fields("nextPageToken", "files("+nodeFields+")").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, wrapErr(folderID, err)
	}

	page := &remote.Page{NextPageToken: list.NextPageToken}
	for _, f := range list.Files {
		page.Nodes = append(page.Nodes, toNode(f))
	}
	return page, nil
}

func (s *Store) Metadata(ctx context.Context, id string) (*remote.Node, error) {
	f, err := s.svc.Files.Get(id).
		Fields(nodeFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr(id, err)
	}
	return toNode(f), nil
}

func (s *Store) Create(ctx context.Context, parentID string, title string, kind remote.Kind, mimeType string) (*remote.Node, error) {
	if kind == remote.KindFolder {
		mimeType = FolderMimeType
	}
	f, err := s.svc.Files.Create(&drive.File{
		Name:     title,
		MimeType: mimeType,
		Parents:  []string{parentID},
	}).
		Fields(nodeFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr(parentID, err)
	}
	return toNode(f), nil
}

func (s *Store) Upload(ctx context.Context, id string, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = s.svc.Files.Update(id, &drive.File{}).
		Media(file).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return wrapErr(id, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, id string, localPath string) error {
	resp, err := s.svc.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return wrapErr(id, err)
	}
	defer resp.Body.Close()

	if _, err := utils.WriteFileAtomic(localPath, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

func toNode(f *drive.File) *remote.Node {
	kind := remote.KindFile
	if f.MimeType == FolderMimeType {
		kind = remote.KindFolder
	}
	return &remote.Node{ID: f.Id, Title: f.Name, Kind: kind, MimeType: f.MimeType}
}

func wrapErr(id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", remote.ErrNotFound, id)
	}
	return fmt.Errorf("drive %s: %w", id, err)
}

var _ remote.Store = (*Store)(nil)
