package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/bartventer/elearning-site/core/course"
)

var (
	itemBaseColumns = []string{"id", "owner_id", "title", "created_at", "updated_at"}
	itemKindColumns = map[course.Kind][]string{
		course.KindText:  {"content"},
		course.KindVideo: {"url"},
		course.KindFile:  {"file_key", "file_url", "content_type"},
		course.KindImage: {"file_key", "file_url", "content_type"},
	}
	contentColumns = []string{"id", "module_id", "kind", "item_id", `"order"`}
)

func itemTable(kind course.Kind) (string, error) {
	if _, ok := itemKindColumns[kind]; !ok {
		return "", &course.UnknownKindError{Kind: string(kind)}
	}
	return string(kind) + "_items", nil
}

func itemColumns(kind course.Kind) []string {
	return append(append([]string{}, itemBaseColumns...), itemKindColumns[kind]...)
}

// itemRow holds the columns of every item table; only those of the row's kind are set.
type itemRow struct {
	ID          int64       `db:"id"`
	OwnerID     string      `db:"owner_id"`
	Title       string      `db:"title"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	Content     null.String `db:"content"`
	URL         null.String `db:"url"`
	FileKey     null.String `db:"file_key"`
	FileURL     null.String `db:"file_url"`
	ContentType null.String `db:"content_type"`
}

// itemValues returns the kind specific column values of it.
func itemValues(it course.Item) map[string]interface{} {
	switch v := it.(type) {
	case course.TextItem:
		return map[string]interface{}{"content": v.Content}
	case course.VideoItem:
		return map[string]interface{}{"url": v.URL}
	case course.FileItem:
		return map[string]interface{}{"file_key": v.File.Key, "file_url": v.File.URL, "content_type": v.File.ContentType}
	case course.ImageItem:
		return map[string]interface{}{"file_key": v.Image.Key, "file_url": v.Image.URL, "content_type": v.Image.ContentType}
	default:
		panic(fmt.Sprintf("sqlxrepos: unhandled item type %T", it))
	}
}

func (r itemRow) item(kind course.Kind) course.Item {
	base := course.ItemBase{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	upload := course.Upload{Key: r.FileKey.String, URL: r.FileURL.String, ContentType: r.ContentType.String}

	switch kind {
	case course.KindText:
		return course.TextItem{ItemBase: base, Content: r.Content.String}
	case course.KindVideo:
		return course.VideoItem{ItemBase: base, URL: r.URL.String}
	case course.KindFile:
		return course.FileItem{ItemBase: base, File: upload}
	case course.KindImage:
		return course.ImageItem{ItemBase: base, Image: upload}
	default:
		panic(fmt.Sprintf("sqlxrepos: unhandled item kind %q", kind))
	}
}

type contentRow struct {
	ID       int64  `db:"id"`
	ModuleID int64  `db:"module_id"`
	Kind     string `db:"kind"`
	ItemID   int64  `db:"item_id"`
	Order    int    `db:"order"`
}

func (r contentRow) content() course.Content {
	return course.Content{ID: r.ID, ModuleID: r.ModuleID, Kind: course.Kind(r.Kind), ItemID: r.ItemID, Order: r.Order}
}

// Items

func (repo *courseRepository) CreateItem(ctx context.Context, it course.Item) (course.Item, error) {
	table, err := itemTable(it.Kind())
	if err != nil {
		return nil, err
	}

	base := it.Base()
	base.CreatedAt = base.CreatedAt.UTC()
	base.UpdatedAt = base.UpdatedAt.UTC()
	values := itemValues(it)
	values["owner_id"] = base.OwnerID
	values["title"] = base.Title
	values["created_at"] = base.CreatedAt
	values["updated_at"] = base.UpdatedAt

	if err = repo.get(ctx, &base.ID, psql.Insert(table).SetMap(values).Suffix("RETURNING id"), "inserting item"); err != nil {
		return nil, err
	}
	return course.WithBase(it, base), nil
}

func (repo *courseRepository) GetItem(ctx context.Context, kind course.Kind, id int64) (course.Item, error) {
	table, err := itemTable(kind)
	if err != nil {
		return nil, err
	}
	var r itemRow
	if err = repo.get(ctx, &r, psql.Select(itemColumns(kind)...).From(table).Where(sq.Eq{"id": id}), "getting item"); err != nil {
		return nil, err
	}
	return r.item(kind), nil
}

// UpdateItem updates the title & kind specific fields of an item. Its owner & creation time are immutable.
func (repo *courseRepository) UpdateItem(ctx context.Context, it course.Item) (course.Item, error) {
	kind := it.Kind()
	table, err := itemTable(kind)
	if err != nil {
		return nil, err
	}

	values := itemValues(it)
	values["title"] = it.Base().Title
	values["updated_at"] = it.Base().UpdatedAt.UTC()

	var r itemRow
	err = repo.get(ctx, &r,
		psql.Update(table).SetMap(values).Where(sq.Eq{"id": it.Base().ID}).Suffix("RETURNING "+joinColumns(itemColumns(kind))),
		"updating item")
	if err != nil {
		return nil, err
	}
	return r.item(kind), nil
}

func (repo *courseRepository) DeleteItem(ctx context.Context, kind course.Kind, id int64) error {
	table, err := itemTable(kind)
	if err != nil {
		return err
	}
	return repo.delete(ctx, table, id)
}

// Contents

func (repo *courseRepository) CreateContent(ctx context.Context, c course.Content) (course.Content, error) {
	err := repo.get(ctx, &c.ID,
		psql.Insert("contents").
			Columns("module_id", "kind", "item_id", `"order"`).
			Values(c.ModuleID, string(c.Kind), c.ItemID, c.Order).
			Suffix("RETURNING id"),
		"inserting content")
	c.Item = nil
	return c, err
}

// resolve fetches the items referenced by contents, one query per kind. Missing items are left nil.
func (repo *courseRepository) resolve(ctx context.Context, contents []course.Content) error {
	ids := make(map[course.Kind][]int64)
	for _, c := range contents {
		ids[c.Kind] = append(ids[c.Kind], c.ItemID)
	}

	items := make(map[course.Kind]map[int64]course.Item, len(ids))
	for kind, kindIDs := range ids {
		table, err := itemTable(kind)
		if err != nil {
			continue // unknown kinds resolve to nil
		}
		var rows []itemRow
		err = repo.selectRows(ctx, &rows,
			psql.Select(itemColumns(kind)...).From(table).Where(sq.Eq{"id": kindIDs}),
			"querying "+table)
		if err != nil {
			return err
		}
		items[kind] = make(map[int64]course.Item, len(rows))
		for _, r := range rows {
			items[kind][r.ID] = r.item(kind)
		}
	}

	for i, c := range contents {
		contents[i].Item = items[c.Kind][c.ItemID]
	}
	return nil
}

func (repo *courseRepository) GetContent(ctx context.Context, id int64) (course.Content, error) {
	var r contentRow
	if err := repo.get(ctx, &r, psql.Select(contentColumns...).From("contents").Where(sq.Eq{"id": id}), "getting content"); err != nil {
		return course.Content{}, err
	}
	contents := []course.Content{r.content()}
	if err := repo.resolve(ctx, contents); err != nil {
		return course.Content{}, errors.Wrap(err, "resolving item")
	}
	return contents[0], nil
}

func (repo *courseRepository) QueryContents(ctx context.Context, moduleID int64) ([]course.Content, error) {
	var rows []contentRow
	err := repo.selectRows(ctx, &rows,
		psql.Select(contentColumns...).From("contents").Where(sq.Eq{"module_id": moduleID}).OrderBy(`"order"`, "id"),
		"querying contents")
	if err != nil {
		return nil, err
	}
	contents := make([]course.Content, 0, len(rows))
	for _, r := range rows {
		contents = append(contents, r.content())
	}
	if err = repo.resolve(ctx, contents); err != nil {
		return nil, errors.Wrap(err, "resolving items")
	}
	return contents, nil
}

func (repo *courseRepository) DeleteContent(ctx context.Context, id int64) error {
	return repo.delete(ctx, "contents", id)
}
