package course

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core"
)

var (
	errNoFileStore  = errors.New("no file store configured")
	errInvalidImage = "upload a valid image; the file you uploaded was either not an image or a corrupted image"
)

func ownedContent(ctx context.Context, repo Repository, id int64, ownerID string) (Content, error) {
	c, err := repo.GetContent(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if _, err = ownedModule(ctx, repo, c.ModuleID, ownerID); err != nil {
		return Content{}, err
	}
	return c, nil
}

// saveUpload stores the payload's file, if any, for an item of the given kind.
func (svc *Service) saveUpload(ctx context.Context, kind Kind, payload ItemPayload) (*Upload, error) {
	if !kind.HasUpload() || payload.File == nil {
		return nil, nil
	}
	if svc.files == nil {
		return nil, errNoFileStore
	}

	up, err := svc.files.Save(ctx, payload.File.Filename, payload.File.Body)
	if err != nil {
		return nil, errors.Wrap(err, "saving upload")
	}
	if kind == KindImage && !strings.HasPrefix(up.ContentType, "image/") {
		svc.removeUploads(ctx, up.Key)
		return nil, core.NewFieldValidationError(string(kind), errInvalidImage)
	}
	return &up, nil
}

// removeUploads removes stored files. Failures are logged, never returned: the rows referencing them are already gone.
func (svc *Service) removeUploads(ctx context.Context, keys ...string) {
	if svc.files == nil {
		return
	}
	for _, key := range keys {
		if err := svc.files.Remove(ctx, key); err != nil && svc.logger != nil {
			svc.logger.Warn("removing upload "+key, err)
		}
	}
}

// newItem builds an unsaved item of the given kind from payload.
func newItem(kind Kind, base ItemBase, payload ItemPayload, upload *Upload) (Item, error) {
	var up Upload
	if upload != nil {
		up = *upload
	}
	switch kind {
	case KindText:
		return TextItem{ItemBase: base, Content: payload.Content}, nil
	case KindVideo:
		return VideoItem{ItemBase: base, URL: payload.URL}, nil
	case KindFile:
		return FileItem{ItemBase: base, File: up}, nil
	case KindImage:
		return ImageItem{ItemBase: base, Image: up}, nil
	default:
		return nil, &UnknownKindError{Kind: string(kind)}
	}
}

// applyPayload returns a copy of `it` updated with payload. A nil upload keeps the current file.
func applyPayload(it Item, payload ItemPayload, upload *Upload, now time.Time) Item {
	base := it.Base()
	base.Title = payload.Title
	base.UpdatedAt = now

	switch v := it.(type) {
	case TextItem:
		v.Content = payload.Content
		return WithBase(v, base)
	case VideoItem:
		v.URL = payload.URL
		return WithBase(v, base)
	case FileItem:
		if upload != nil {
			v.File = *upload
		}
		return WithBase(v, base)
	case ImageItem:
		if upload != nil {
			v.Image = *upload
		}
		return WithBase(v, base)
	default:
		return WithBase(it, base)
	}
}

// CreateContent creates an item of the given kind and appends a slot referencing it to a module owned by ownerID.
// The item & its slot are created atomically: either both exist afterwards or neither does.
func (svc *Service) CreateContent(ctx context.Context, moduleID int64, kind string, payload ItemPayload, ownerID string) (Content, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Content{}, err
	}

	upload, err := svc.saveUpload(ctx, k, payload)
	if err != nil {
		return Content{}, err
	}

	now := time.Now().UTC()
	item, err := newItem(k, ItemBase{OwnerID: ownerID, Title: payload.Title, CreatedAt: now, UpdatedAt: now}, payload, upload)
	if err != nil {
		return Content{}, err
	}

	var created Content
	err = svc.repo.Tx(ctx, func(repo Repository) error {
		if _, err := ownedModule(ctx, repo, moduleID, ownerID); err != nil {
			return err
		}

		scope := ModuleContents(moduleID)
		if err := repo.LockScope(ctx, scope); err != nil {
			return errors.Wrap(err, "locking module contents")
		}
		order, err := NewOrderAssigner(repo).NextOrder(ctx, scope)
		if err != nil {
			return err
		}

		it, err := repo.CreateItem(ctx, item)
		if err != nil {
			return errors.Wrap(err, "creating item")
		}
		c, err := repo.CreateContent(ctx, Content{
			ModuleID: moduleID,
			Kind:     k,
			ItemID:   it.Base().ID,
			Order:    order,
		})
		if err != nil {
			return errors.Wrap(err, "creating content")
		}
		c.Item = it
		created = c
		return nil
	})
	if err != nil {
		if upload != nil {
			svc.removeUploads(ctx, upload.Key)
		}
		return Content{}, err
	}
	return created, nil
}

// GetOwnedContent returns a content slot of a module owned by ownerID, with its item.
func (svc *Service) GetOwnedContent(ctx context.Context, id int64, ownerID string) (Content, error) {
	c, err := ownedContent(ctx, svc.repo, id, ownerID)
	if err != nil {
		return Content{}, err
	}
	if c.Item == nil {
		return Content{}, &InconsistentStateError{ContentID: c.ID, Kind: c.Kind, ItemID: c.ItemID}
	}
	return c, nil
}

// UpdateContent updates the item referenced by a content slot. The slot's kind & order are left untouched.
func (svc *Service) UpdateContent(ctx context.Context, id int64, payload ItemPayload, ownerID string) (Content, error) {
	c, err := svc.GetOwnedContent(ctx, id, ownerID)
	if err != nil {
		return Content{}, err
	}

	upload, err := svc.saveUpload(ctx, c.Kind, payload)
	if err != nil {
		return Content{}, err
	}

	var replaced string
	err = svc.repo.Tx(ctx, func(repo Repository) error {
		c, err = ownedContent(ctx, repo, id, ownerID)
		if err != nil {
			return err
		}
		if c.Item == nil {
			return &InconsistentStateError{ContentID: c.ID, Kind: c.Kind, ItemID: c.ItemID}
		}

		if old, ok := ItemUpload(c.Item); ok && upload != nil {
			replaced = old.Key
		}
		it, err := repo.UpdateItem(ctx, applyPayload(c.Item, payload, upload, time.Now().UTC()))
		if err != nil {
			return errors.Wrap(err, "updating item")
		}
		c.Item = it
		return nil
	})
	if err != nil {
		if upload != nil {
			svc.removeUploads(ctx, upload.Key)
		}
		return Content{}, err
	}
	if replaced != "" {
		svc.removeUploads(ctx, replaced)
	}
	return c, nil
}

// DeleteContent deletes a content slot and the item it references, atomically.
// A slot whose item is missing is an *InconsistentStateError and is left in place.
func (svc *Service) DeleteContent(ctx context.Context, id int64, ownerID string) error {
	var upload string
	err := svc.repo.Tx(ctx, func(repo Repository) error {
		c, err := ownedContent(ctx, repo, id, ownerID)
		if err != nil {
			return err
		}

		if err = repo.DeleteItem(ctx, c.Kind, c.ItemID); err != nil {
			if IsNotFound(err) {
				return &InconsistentStateError{ContentID: c.ID, Kind: c.Kind, ItemID: c.ItemID}
			}
			return errors.Wrap(err, "deleting item")
		}
		if err = repo.DeleteContent(ctx, c.ID); err != nil {
			return errors.Wrap(err, "deleting content")
		}

		if c.Item != nil {
			if up, ok := ItemUpload(c.Item); ok {
				upload = up.Key
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if upload != "" {
		svc.removeUploads(ctx, upload)
	}
	return nil
}

// ListForModule returns a module's content slots sorted by order, with their items.
func (svc *Service) ListForModule(ctx context.Context, moduleID int64) ([]Content, error) {
	contents, err := svc.repo.QueryContents(ctx, moduleID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	for _, c := range contents {
		if c.Item == nil {
			return nil, &InconsistentStateError{ContentID: c.ID, Kind: c.Kind, ItemID: c.ItemID}
		}
	}
	return contents, nil
}

// ModuleContents returns the content slots of a module owned by ownerID.
func (svc *Service) ModuleContents(ctx context.Context, moduleID int64, ownerID string) (Module, error) {
	m, err := ownedModule(ctx, svc.repo, moduleID, ownerID)
	if err != nil {
		return Module{}, err
	}
	if m.Contents, err = svc.ListForModule(ctx, m.ID); err != nil {
		return Module{}, err
	}
	return m, nil
}

// Render renders the item referenced by a content slot.
func Render(c Content) (RenderedContent, error) {
	html, err := c.Render()
	if err != nil {
		return RenderedContent{}, err
	}
	return RenderedContent{Content: c, HTML: html}, nil
}
