// Package gallery owns the photo catalog: image records, groups, visibility,
// display ordering and per-entity overrides. All mutations run as
// read-modify-write transactions against a single persisted store, so the
// catalog stays internally consistent under concurrent requests.
package gallery

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/facette/natsort"
	"github.com/google/uuid"

	"github.com/camden-git/photoframebackend/media"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

// Override value bounds.
const (
	MinScale      = 0.1
	MaxScale      = 2.0
	MaxBevelWidth = 100
)

// Data is the persisted catalog record set.
type Data struct {
	Images map[string]*models.Image `json:"images"`
	Groups map[string]*models.Group `json:"groups"`
}

func defaultData() Data {
	return Data{
		Images: map[string]*models.Image{},
		Groups: map[string]*models.Group{},
	}
}

// Catalog is the shared gallery state engine. Files behind deleted records
// are removed through the media store as a best-effort side effect; the
// catalog record itself is the source of truth.
type Catalog struct {
	store *store.Store[Data]
	files media.Store
}

// NewCatalog opens (or creates) the catalog backed by the given file path.
func NewCatalog(path string, files media.Store) *Catalog {
	return &Catalog{
		store: store.New(path, defaultData),
		files: files,
	}
}

// snapshot loads the catalog with order indices normalized. Reads are
// unlocked; callers must treat the result as possibly stale.
func (c *Catalog) snapshot() (Data, error) {
	d, err := c.store.Load()
	if err != nil {
		return Data{}, err
	}
	normalize(&d)
	return d, nil
}

// update wraps store.Update with normalization so every mutation sees a
// catalog whose order indices already form a contiguous permutation.
func (c *Catalog) update(fn func(*Data) error) error {
	return c.store.Update(func(d *Data) error {
		normalize(d)
		return fn(d)
	})
}

// normalize repairs nil maps and re-assigns order indices when they do not
// form a contiguous 0..N-1 permutation (legacy records, hand-edited files).
// Repair sorts by stored order first and natural filename order second, so
// valid catalogs pass through unchanged.
func normalize(d *Data) {
	if d.Images == nil {
		d.Images = map[string]*models.Image{}
	}
	if d.Groups == nil {
		d.Groups = map[string]*models.Group{}
	}

	if ordersContiguous(d.Images) {
		return
	}

	imgs := make([]*models.Image, 0, len(d.Images))
	for _, img := range d.Images {
		imgs = append(imgs, img)
	}
	sort.Slice(imgs, func(i, j int) bool {
		if imgs[i].Order != imgs[j].Order {
			return imgs[i].Order < imgs[j].Order
		}
		return natsort.Compare(imgs[i].Filename, imgs[j].Filename)
	})
	for i, img := range imgs {
		img.Order = i
	}
}

func ordersContiguous(images map[string]*models.Image) bool {
	seen := make([]bool, len(images))
	for _, img := range images {
		if img.Order < 0 || img.Order >= len(images) || seen[img.Order] {
			return false
		}
		seen[img.Order] = true
	}
	return true
}

// AddImage admits a new image record, assigning the next display slot.
func (c *Catalog) AddImage(img models.Image) error {
	if img.Filename == "" {
		return Validationf("filename is required")
	}
	return c.update(func(d *Data) error {
		if _, exists := d.Images[img.Filename]; exists {
			return Validationf("image '%s' already exists", img.Filename)
		}
		img.Order = len(d.Images)
		d.Images[img.Filename] = &img
		return nil
	})
}

// GetImage returns a copy of a single image record.
func (c *Catalog) GetImage(id string) (models.Image, error) {
	d, err := c.snapshot()
	if err != nil {
		return models.Image{}, err
	}
	img, ok := d.Images[id]
	if !ok {
		return models.Image{}, fmt.Errorf("image '%s': %w", id, ErrNotFound)
	}
	return *img, nil
}

// Images returns all image records in ascending display order.
func (c *Catalog) Images() ([]models.Image, error) {
	d, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return sortedImages(d.Images), nil
}

func sortedImages(m map[string]*models.Image) []models.Image {
	imgs := make([]models.Image, 0, len(m))
	for _, img := range m {
		imgs = append(imgs, *img)
	}
	sort.Slice(imgs, func(i, j int) bool { return imgs[i].Order < imgs[j].Order })
	return imgs
}

func validateUpdate(upd models.ImageUpdate) error {
	if upd.Scale != nil && (*upd.Scale < MinScale || *upd.Scale > MaxScale) {
		return Validationf("scale must be between %g and %g", MinScale, MaxScale)
	}
	if upd.BevelWidth != nil && (*upd.BevelWidth < 0 || *upd.BevelWidth > MaxBevelWidth) {
		return Validationf("bevel_width must be between 0 and %d", MaxBevelWidth)
	}
	return nil
}

// UpdateImage merges the provided fields into the stored record. The merge
// happens against the record inside the write critical section, so concurrent
// patches to different fields are not lost.
func (c *Catalog) UpdateImage(id string, upd models.ImageUpdate) error {
	if err := validateUpdate(upd); err != nil {
		return err
	}
	return c.update(func(d *Data) error {
		img, ok := d.Images[id]
		if !ok {
			return fmt.Errorf("image '%s': %w", id, ErrNotFound)
		}
		if upd.GroupID != nil && *upd.GroupID != "" {
			if _, ok := d.Groups[*upd.GroupID]; !ok {
				return fmt.Errorf("group '%s': %w", *upd.GroupID, ErrNotFound)
			}
		}
		applyImageUpdate(img, upd)
		return nil
	})
}

func applyImageUpdate(img *models.Image, upd models.ImageUpdate) {
	if upd.Enabled != nil {
		img.Enabled = *upd.Enabled
	}
	if upd.Title != nil {
		img.Title = *upd.Title
	}
	if upd.MatColor != nil {
		img.MatColor = upd.MatColor
	}
	if upd.MatFinish != nil {
		img.MatFinish = upd.MatFinish
	}
	if upd.BevelWidth != nil {
		img.BevelWidth = upd.BevelWidth
	}
	if upd.Scale != nil {
		img.Scale = upd.Scale
	}
	if upd.GroupID != nil {
		img.GroupID = *upd.GroupID
	}
}

// DeleteImage removes the record and compacts the display order of every
// image behind it. The backing file and thumbnail are deleted best-effort:
// catalog removal sticks even when file deletion fails, and the failure is
// returned separately for the caller to log.
func (c *Catalog) DeleteImage(id string) (fileErr error, err error) {
	err = c.update(func(d *Data) error {
		img, ok := d.Images[id]
		if !ok {
			return fmt.Errorf("image '%s': %w", id, ErrNotFound)
		}
		removeAndCompact(d, img)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.files != nil {
		if rmErr := c.files.RemoveImage(id); rmErr != nil {
			fileErr = fmt.Errorf("removing files for '%s': %w", id, rmErr)
		}
	}
	return fileErr, nil
}

func removeAndCompact(d *Data, img *models.Image) {
	removedOrder := img.Order
	delete(d.Images, img.Filename)
	for _, other := range d.Images {
		if other.Order > removedOrder {
			other.Order--
		}
	}
}

// Bulk actions.
const (
	BulkShow   = "show"
	BulkHide   = "hide"
	BulkDelete = "delete"
)

// BulkFailure reports a single ID that could not be processed.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult summarizes a bulk operation.
type BulkResult struct {
	Applied  int           `json:"applied"`
	Failures []BulkFailure `json:"failures"`
}

// Bulk applies show/hide/delete to a set of images in one store transaction.
// Unknown IDs are collected as per-ID failures instead of aborting the batch;
// an invalid action or store failure leaves the catalog untouched.
func (c *Catalog) Bulk(ids []string, action string) (BulkResult, error) {
	switch action {
	case BulkShow, BulkHide, BulkDelete:
	default:
		return BulkResult{}, Validationf("invalid bulk action '%s'", action)
	}
	if len(ids) == 0 {
		return BulkResult{}, Validationf("no images selected")
	}

	var result BulkResult
	var deleted []string
	err := c.update(func(d *Data) error {
		result = BulkResult{}
		deleted = nil
		for _, id := range ids {
			img, ok := d.Images[id]
			if !ok {
				result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: "not found"})
				continue
			}
			switch action {
			case BulkShow:
				img.Enabled = true
			case BulkHide:
				img.Enabled = false
			case BulkDelete:
				removeAndCompact(d, img)
				deleted = append(deleted, id)
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	if c.files != nil {
		for _, id := range deleted {
			if rmErr := c.files.RemoveImage(id); rmErr != nil {
				log.Printf("gallery: bulk delete: failed to remove files for %s: %v", id, rmErr)
			}
		}
	}
	return result, nil
}

// Reorder replaces the display order with the given sequence, which must be
// an exact permutation of all current image IDs. Anything else is rejected
// with a ValidationError and the catalog is left unchanged.
func (c *Catalog) Reorder(ids []string) error {
	return c.update(func(d *Data) error {
		if len(ids) != len(d.Images) {
			return Validationf("reorder list has %d entries, catalog has %d images", len(ids), len(d.Images))
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				return Validationf("duplicate image '%s' in reorder list", id)
			}
			if _, ok := d.Images[id]; !ok {
				return Validationf("unknown image '%s' in reorder list", id)
			}
			seen[id] = true
		}
		for i, id := range ids {
			d.Images[id].Order = i
		}
		return nil
	})
}

// CreateGroup creates a group carrying shared display overrides.
func (c *Catalog) CreateGroup(name string, overrides models.Overrides) (models.Group, error) {
	if name == "" {
		return models.Group{}, Validationf("group name is required")
	}
	group := models.Group{
		ID:        "group_" + uuid.NewString()[:8],
		Name:      name,
		CreatedAt: time.Now(),
		Overrides: overrides,
	}
	err := c.update(func(d *Data) error {
		d.Groups[group.ID] = &group
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// Groups returns all groups.
func (c *Catalog) Groups() ([]models.Group, error) {
	d, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(d.Groups))
	for _, g := range d.Groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// UpdateGroup merges the provided fields into a group record.
func (c *Catalog) UpdateGroup(id string, upd models.GroupUpdate) error {
	if upd.Scale != nil && (*upd.Scale < MinScale || *upd.Scale > MaxScale) {
		return Validationf("scale must be between %g and %g", MinScale, MaxScale)
	}
	if upd.BevelWidth != nil && (*upd.BevelWidth < 0 || *upd.BevelWidth > MaxBevelWidth) {
		return Validationf("bevel_width must be between 0 and %d", MaxBevelWidth)
	}
	return c.update(func(d *Data) error {
		group, ok := d.Groups[id]
		if !ok {
			return fmt.Errorf("group '%s': %w", id, ErrNotFound)
		}
		if upd.Name != nil {
			group.Name = *upd.Name
		}
		if upd.MatColor != nil {
			group.MatColor = upd.MatColor
		}
		if upd.MatFinish != nil {
			group.MatFinish = upd.MatFinish
		}
		if upd.BevelWidth != nil {
			group.BevelWidth = upd.BevelWidth
		}
		if upd.Scale != nil {
			group.Scale = upd.Scale
		}
		return nil
	})
}

// DeleteGroup removes the group and clears the group reference on every
// member image in the same store transaction. Member images are never
// deleted.
func (c *Catalog) DeleteGroup(id string) error {
	return c.update(func(d *Data) error {
		if _, ok := d.Groups[id]; !ok {
			return fmt.Errorf("group '%s': %w", id, ErrNotFound)
		}
		delete(d.Groups, id)
		for _, img := range d.Images {
			if img.GroupID == id {
				img.GroupID = ""
			}
		}
		return nil
	})
}

// EnabledImages is the one read path with no auth: only visibility-true
// images, ascending display order, trimmed to what rendering needs. Group
// overrides apply as defaults where the image has none of its own.
func (c *Catalog) EnabledImages() ([]models.DisplayImage, error) {
	d, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	var out []models.DisplayImage
	for _, img := range sortedImages(d.Images) {
		if !img.Enabled {
			continue
		}
		resolved := img.Overrides
		if group, ok := d.Groups[img.GroupID]; ok {
			resolved = resolveOverrides(img.Overrides, group.Overrides)
		}
		scale := 1.0
		if resolved.Scale != nil {
			scale = *resolved.Scale
		}
		out = append(out, models.DisplayImage{
			Filename:   img.Filename,
			Width:      img.Width,
			Height:     img.Height,
			MatColor:   resolved.MatColor,
			MatFinish:  resolved.MatFinish,
			BevelWidth: resolved.BevelWidth,
			Scale:      scale,
			GroupID:    img.GroupID,
		})
	}
	return out, nil
}

// resolveOverrides fills nil image fields from the group defaults.
func resolveOverrides(img, group models.Overrides) models.Overrides {
	if img.MatColor == nil {
		img.MatColor = group.MatColor
	}
	if img.MatFinish == nil {
		img.MatFinish = group.MatFinish
	}
	if img.BevelWidth == nil {
		img.BevelWidth = group.BevelWidth
	}
	if img.Scale == nil {
		img.Scale = group.Scale
	}
	return img
}
